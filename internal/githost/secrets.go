package githost

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"github.com/google/go-github/v75/github"
	"golang.org/x/crypto/nacl/box"

	"github.com/shipkit-io/shipkit/internal/errors"
)

// SetSecret encrypts value with the repository's Actions public key and
// stores it as an Actions secret. GitHub only accepts libsodium sealed
// boxes, so the plaintext never travels in the request.
func (c *Client) SetSecret(ctx context.Context, owner, repo, name, value string) error {
	key, _, err := c.gh.Actions.GetRepoPublicKey(ctx, owner, repo)
	if err != nil {
		return errors.NewGitHubError(errors.ErrCodeAPIRequest, "failed to fetch Actions public key", err)
	}

	encrypted, err := sealSecret(key.GetKey(), value)
	if err != nil {
		return err
	}

	_, err = c.gh.Actions.CreateOrUpdateRepoSecret(ctx, owner, repo, &github.EncryptedSecret{
		Name:           name,
		KeyID:          key.GetKeyID(),
		EncryptedValue: encrypted,
	})
	if err != nil {
		return errors.NewGitHubError(errors.ErrCodeAPIRequest, "failed to store secret "+name, err)
	}
	return nil
}

// SetVariable stores a plain Actions variable, updating it when it
// already exists.
func (c *Client) SetVariable(ctx context.Context, owner, repo, name, value string) error {
	variable := &github.ActionsVariable{Name: name, Value: value}

	resp, err := c.gh.Actions.CreateRepoVariable(ctx, owner, repo, variable)
	if err == nil {
		return nil
	}
	if resp != nil && resp.StatusCode == http.StatusConflict {
		if _, err := c.gh.Actions.UpdateRepoVariable(ctx, owner, repo, variable); err != nil {
			return errors.NewGitHubError(errors.ErrCodeAPIRequest, "failed to update variable "+name, err)
		}
		return nil
	}
	return errors.NewGitHubError(errors.ErrCodeAPIRequest, "failed to create variable "+name, err)
}

// sealSecret encrypts plaintext for the base64-encoded repository public
// key using an anonymous NaCl sealed box.
func sealSecret(publicKeyB64, plaintext string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return "", errors.NewGitHubError(errors.ErrCodeAPIRequest, "invalid Actions public key encoding", err)
	}
	if len(decoded) != 32 {
		return "", errors.NewGitHubError(errors.ErrCodeAPIRequest, "invalid Actions public key length", nil)
	}

	var publicKey [32]byte
	copy(publicKey[:], decoded)

	sealed, err := box.SealAnonymous(nil, []byte(plaintext), &publicKey, rand.Reader)
	if err != nil {
		return "", errors.NewInternalError(errors.ErrCodeInternal, "failed to seal secret", err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}
