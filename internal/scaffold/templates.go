package scaffold

// File templates rendered against templateData. Swift sources stay close
// to what Xcode generates so the skeleton builds with a plain `swift build`.

const gitignoreTemplate = `# Xcode
build/
DerivedData/
*.xcuserstate
xcuserdata/
*.xccheckout
*.moved-aside

# Swift Package Manager
.build/
.swiftpm/
Package.resolved

# Environment and credentials
.env
*.p8
*.p12
*.mobileprovision

# fastlane
fastlane/report.xml
fastlane/Preview.html
fastlane/screenshots/**/*.png
fastlane/test_output

# shipkit output
coverage-output/
releases/
`

const envTemplate = `# Credentials for {{.Name}}. Copy real values in; never commit this file.

# App Store Connect
APPLE_ID=your-apple-id@example.com
APP_STORE_CONNECT_API_KEY_ID=YOUR_KEY_ID
APP_STORE_CONNECT_API_ISSUER_ID=YOUR_ISSUER_ID
APP_STORE_CONNECT_API_KEY_CONTENT=YOUR_BASE64_KEY_CONTENT

# Code signing
DEVELOPMENT_TEAM=YOUR_TEAM_ID
MATCH_GIT_URL=https://github.com/your-org/certificates.git
MATCH_PASSWORD=changeme
MATCH_KEYCHAIN_PASSWORD=changeme
`

const codeownersTemplate = `# Default reviewers for {{.Name}}.
* @your-org/ios-team
`

const securityGuideTemplate = `# Security Policy

## Reporting a Vulnerability

Report vulnerabilities privately through GitHub's security advisories for
this repository. Do not open public issues for security problems.

## Secrets

Credentials live in ` + "`.env`" + ` (never committed) and are synced to GitHub
Actions with ` + "`shipkit secrets sync`" + `. Secret scanning and push protection
should stay enabled; run ` + "`shipkit audit`" + ` to verify.
`

const contributingTemplate = `# Contributing to {{.Name}}

1. Branch from ` + "`develop`" + ` using ` + "`feature/<topic>`" + `.
2. Keep commits small and messages imperative.
3. Run ` + "`shipkit test`" + ` before pushing.
4. Open a pull request into ` + "`develop`" + `; CI and reviews are required.

See docs/BRANCHING.md for the full branching model and docs/TESTING.md for
the test workflow.
`

const branchingGuideTemplate = `# Branching Model

- ` + "`main`" + `: released code only. Protected: two reviews, code owners,
  green checks.
- ` + "`develop`" + `: integration branch. Protected: one review.
- ` + "`feature/<topic>`" + `: day-to-day work, merged into ` + "`develop`" + `.
- ` + "`release/<version>`" + `: created by ` + "`shipkit release prepare`" + `, merged to
  ` + "`main`" + `, tagged, then cleaned up by ` + "`shipkit release finish`" + `.
- ` + "`hotfix/<topic>`" + `: branched from ` + "`main`" + ` for urgent fixes.
`

const testingGuideTemplate = `# Testing

Run the full suite with coverage:

    shipkit test

Useful variations:

    shipkit test --unit-only       # skip UI tests
    shipkit test --performance     # include performance tests
    shipkit test --watch           # re-run on source changes
    shipkit coverage --threshold 80

Coverage reports land in ` + "`coverage-output/`" + `.
`

const releaseGuideTemplate = `# Releasing {{.Name}}

1. ` + "`shipkit release prepare --bump minor`" + `: computes the next version,
   creates ` + "`release/<version>`" + `, rewrites version strings, updates
   CHANGELOG.md, commits, and pushes.
2. Open a pull request from the release branch into ` + "`main`" + `; merge once
   green, then tag and publish the GitHub release.
3. ` + "`shipkit release finish --version <version>`" + `: deletes the release
   branch, merges ` + "`main`" + ` back into ` + "`develop`" + `, and writes the release
   report under ` + "`releases/`" + `.
`

const gemfileTemplate = `source "https://rubygems.org"

gem "fastlane"
`

const appfileTemplate = `app_identifier("{{.BundleID}}")
apple_id(ENV["APPLE_ID"])
team_id(ENV["DEVELOPMENT_TEAM"])
`

const fastfileTemplate = `default_platform(:ios)

platform :ios do
  desc "Run the test suite"
  lane :test do
    run_tests(scheme: "{{.ModuleName}}")
  end

  desc "Build and upload to TestFlight"
  lane :beta do
    build_app(scheme: "{{.ModuleName}}")
    upload_to_testflight
  end
end
`

const packageSwiftTemplate = `// swift-tools-version: 5.9
import PackageDescription

let package = Package(
    name: "{{.ModuleName}}",
    platforms: [
        .iOS(.v16),
        .macOS(.v13)
    ],
    products: [
        .library(name: "{{.ModuleName}}", targets: ["{{.ModuleName}}"])
    ],
    targets: [
        .target(name: "{{.ModuleName}}"),
        .testTarget(name: "{{.ModuleName}}Tests", dependencies: ["{{.ModuleName}}"])
    ]
)
`

const librarySwiftTemplate = `import Foundation

/// Entry point of the {{.Name}} module.
public struct {{.ModuleName}} {

    public init() {}

    /// Returns a greeting from the project.
    public func greet() -> String {
        return "Hello from {{.Name}}!"
    }
}
`

const configurationSwiftTemplate = `import Foundation

/// Build-time configuration for {{.Name}}.
public struct Configuration {

    public var isDebugMode: Bool
    public var applicationName: String

    public init(isDebugMode: Bool = false, applicationName: String = "{{.Name}} App") {
        self.isDebugMode = isDebugMode
        self.applicationName = applicationName
    }
}
`

const contentViewSwiftTemplate = `import SwiftUI

/// Placeholder root view. Replace with the real UI.
public struct ContentView: View {

    private let core = {{.ModuleName}}()

    public init() {}

    public var body: some View {
        VStack(spacing: 12) {
            Image(systemName: "shippingbox")
                .font(.largeTitle)
            Text(core.greet())
                .font(.headline)
        }
        .padding()
    }
}

#Preview {
    ContentView()
}
`

const testsSwiftTemplate = `import XCTest
@testable import {{.ModuleName}}

final class {{.ModuleName}}Tests: XCTestCase {

    func testGreet() {
        let core = {{.ModuleName}}()
        XCTAssertEqual(core.greet(), "Hello from {{.Name}}!")
    }

    func testGreetIsStableUnderConcurrentAccess() {
        let core = {{.ModuleName}}()
        let expectation = expectation(description: "concurrent greet")
        expectation.expectedFulfillmentCount = 100

        for _ in 0..<100 {
            DispatchQueue.global().async {
                XCTAssertEqual(core.greet(), "Hello from {{.Name}}!")
                expectation.fulfill()
            }
        }

        wait(for: [expectation], timeout: 5)
    }

    func testConfigurationDefaults() {
        let configuration = Configuration()
        XCTAssertFalse(configuration.isDebugMode)
        XCTAssertEqual(configuration.applicationName, "{{.Name}} App")
    }

    func testConfigurationOverrides() {
        let configuration = Configuration(isDebugMode: true, applicationName: "QA Build")
        XCTAssertTrue(configuration.isDebugMode)
        XCTAssertEqual(configuration.applicationName, "QA Build")
    }
}
`
