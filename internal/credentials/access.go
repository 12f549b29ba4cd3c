package credentials

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"
)

// AccessMode is how a workspace authenticates against its remote.
type AccessMode int

// Repository access modes.
const (
	// AccessPlain uses the repository URL unmodified.
	AccessPlain AccessMode = iota
	// AccessUserPassword embeds encoded credentials in the URL authority.
	AccessUserPassword
	// AccessSSHKey points git at a transient private key file.
	AccessSSHKey
)

// String returns a string representation of the mode.
func (m AccessMode) String() string {
	switch m {
	case AccessPlain:
		return "plain"
	case AccessUserPassword:
		return "username_password"
	case AccessSSHKey:
		return "ssh_key"
	}
	return "unknown"
}

// RemoteURL is the URL given to `git remote add`. A URL that embeds
// credentials is held as a Secret; String always returns a form safe to log.
type RemoteURL struct {
	display string
	secret  Secret
}

// PlainURL wraps a URL that carries no credentials.
func PlainURL(u string) RemoteURL {
	return RemoteURL{display: u}
}

func secretURL(u string) RemoteURL {
	return RemoteURL{display: redactUserinfo(u), secret: NewSecret(u)}
}

// HasSecret reports whether the URL embeds credentials.
func (u RemoteURL) HasSecret() bool {
	return !u.secret.IsZero()
}

// String implements fmt.Stringer with credentials masked.
func (u RemoteURL) String() string {
	return u.display
}

// Reveal returns the URL to hand to git.
func (u RemoteURL) Reveal() string {
	if u.HasSecret() {
		return u.secret.Reveal()
	}
	return u.display
}

// RepoAccess is resolved repository access for the duration of one stage.
// It owns any transient key file and must be released exactly once the
// stage is done.
type RepoAccess struct {
	mode       AccessMode
	url        RemoteURL
	keyFile    string
	sshCommand Secret
	material   *Material
	released   bool
}

// Mode returns the access mode.
func (a *RepoAccess) Mode() AccessMode {
	return a.mode
}

// RemoteURL returns the URL to bind to origin.
func (a *RepoAccess) RemoteURL() RemoteURL {
	return a.url
}

// Env returns extra environment entries git needs for this access,
// GIT_SSH_COMMAND for SSH keys and nothing otherwise.
func (a *RepoAccess) Env() []string {
	if a.mode != AccessSSHKey || a.released {
		return nil
	}
	return []string{"GIT_SSH_COMMAND=" + a.sshCommand.Reveal()}
}

// KeyFile returns the transient key path, empty unless the mode is AccessSSHKey.
// Never log it.
func (a *RepoAccess) KeyFile() string {
	return a.keyFile
}

// String implements fmt.Stringer without exposing credentials or key paths.
func (a *RepoAccess) String() string {
	return fmt.Sprintf("%s %s", a.mode, a.url)
}

// Release removes the key file and drops the secret material. It is safe to
// call more than once.
func (a *RepoAccess) Release() error {
	if a == nil || a.released {
		return nil
	}
	a.released = true
	a.material.Release()
	a.sshCommand = Secret{}

	if a.keyFile == "" {
		return nil
	}
	if err := os.Remove(a.keyFile); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove transient key file: %w", err)
	}
	return nil
}

// sshCommandFor builds a one-shot ssh command using only keyFile and
// skipping host key verification.
func sshCommandFor(keyFile string) string {
	quoted := "'" + strings.ReplaceAll(keyFile, "'", `'\''`) + "'"
	return "ssh -i " + quoted +
		" -o IdentitiesOnly=yes -o StrictHostKeyChecking=no -o UserKnownHostsFile=/dev/null"
}
