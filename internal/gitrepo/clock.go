package gitrepo

import "time"

// timeNow is swappable in tests that need deterministic commit timestamps.
var timeNow = time.Now
