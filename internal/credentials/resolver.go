package credentials

import (
	"context"
	stderrors "errors"
	"os"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrz1836/codexbuild/internal/ctxutil"
	"github.com/mrz1836/codexbuild/internal/errors"
)

// Resolver exchanges credential references for secret material.
type Resolver struct {
	store  Store
	keyDir string
	logger zerolog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithKeyDir sets the directory transient SSH key files are written to.
// Default: os.TempDir().
func WithKeyDir(dir string) ResolverOption {
	return func(r *Resolver) {
		r.keyDir = dir
	}
}

// WithResolverLogger sets the logger.
func WithResolverLogger(logger zerolog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a Resolver backed by store.
func NewResolver(store Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:  store,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With().Str("component", "credentials").Logger()
	return r
}

// Resolve looks up ref and returns its material. When accepted kinds are
// given, material of any other kind fails with errors.ErrCredentialWrongKind.
// Callers own the returned material and must Release it.
func (r *Resolver) Resolve(ctx context.Context, ref string, accepted ...Kind) (*Material, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ref) == "" {
		return nil, errors.Wrap(errors.ErrCredentialNotFound, "empty credential reference")
	}

	rec, err := r.store.Lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(accepted) > 0 && !slices.Contains(accepted, rec.Kind) {
		return nil, errors.Wrapf(errors.ErrCredentialWrongKind,
			"reference %q is %s, want %s", ref, kindOrUnknown(rec.Kind), joinKinds(accepted))
	}

	m, err := materialFromRecord(ref, rec)
	if err != nil {
		return nil, err
	}
	r.logger.Debug().Str("ref", ref).Str("kind", string(m.Kind)).Msg("credential resolved")
	return m, nil
}

// WithSecretText resolves a secret-text reference, passes it to fn and
// releases it when fn returns.
func (r *Resolver) WithSecretText(ctx context.Context, ref string, fn func(Secret) error) error {
	m, err := r.Resolve(ctx, ref, KindSecretText)
	if err != nil {
		return err
	}
	defer m.Release()
	return fn(m.Token)
}

// AcquireRepoAccess builds repository access for repoURL. An empty ref
// yields plain access; otherwise ref must resolve to a username/password or
// SSH key credential. The caller must Release the result; prefer
// WithRepoAccess.
func (r *Resolver) AcquireRepoAccess(ctx context.Context, ref, repoURL string) (*RepoAccess, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ref) == "" {
		return &RepoAccess{mode: AccessPlain, url: PlainURL(repoURL)}, nil
	}

	m, err := r.Resolve(ctx, ref, KindUsernamePassword, KindSSHPrivateKey)
	if err != nil {
		return nil, err
	}

	switch m.Kind {
	case KindUsernamePassword:
		authURL, err := AuthenticatedURL(repoURL, m.Username, m.Password.Reveal())
		if err != nil {
			m.Release()
			return nil, err
		}
		return &RepoAccess{mode: AccessUserPassword, url: secretURL(authURL), material: m}, nil
	default:
		keyFile, err := writeKeyFile(r.keyDir, m.PrivateKey, m.Passphrase)
		if err != nil {
			m.Release()
			return nil, err
		}
		r.logger.Debug().Str("ref", ref).Msg("transient ssh key materialized")
		return &RepoAccess{
			mode:       AccessSSHKey,
			url:        PlainURL(repoURL),
			keyFile:    keyFile,
			sshCommand: NewSecret(sshCommandFor(keyFile)),
			material:   m,
		}, nil
	}
}

// WithRepoAccess acquires repository access, passes it to fn and releases it
// on every path, including when fn fails or panics. A release failure is
// joined to fn's error.
func (r *Resolver) WithRepoAccess(ctx context.Context, ref, repoURL string, fn func(*RepoAccess) error) (err error) {
	access, err := r.AcquireRepoAccess(ctx, ref, repoURL)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := access.Release(); releaseErr != nil {
			r.logger.Warn().Err(releaseErr).Msg("failed to release repository access")
			err = stderrors.Join(err, releaseErr)
		}
	}()
	return fn(access)
}

// materialFromRecord validates rec for its kind and builds Material.
func materialFromRecord(ref string, rec *Record) (*Material, error) {
	m := &Material{Ref: ref, Kind: rec.Kind}

	switch rec.Kind {
	case KindSecretText:
		if rec.Secret == "" {
			return nil, errors.Wrapf(errors.ErrCredentialInvalid, "reference %q has an empty secret", ref)
		}
		m.Token = NewSecret(rec.Secret)
	case KindUsernamePassword:
		if rec.Username == "" {
			return nil, errors.Wrapf(errors.ErrCredentialInvalid, "reference %q has an empty username", ref)
		}
		m.Username = rec.Username
		m.Password = NewSecret(rec.Password)
	case KindSSHPrivateKey:
		key := rec.PrivateKey
		if key == "" && rec.PrivateKeyFile != "" {
			data, err := os.ReadFile(rec.PrivateKeyFile)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCredentialInvalid, "reference %q: read key file: %s", ref, err.Error())
			}
			key = string(data)
		}
		if key == "" {
			return nil, errors.Wrapf(errors.ErrCredentialInvalid, "reference %q has no private key", ref)
		}
		m.PrivateKey = NewSecret(key)
		m.Passphrase = NewSecret(rec.Passphrase)
	default:
		return nil, errors.Wrapf(errors.ErrCredentialWrongKind, "reference %q has unknown kind %q", ref, rec.Kind)
	}
	return m, nil
}

func kindOrUnknown(k Kind) string {
	if k.Valid() {
		return string(k)
	}
	return "unknown kind"
}

func joinKinds(kinds []Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, " or ")
}
