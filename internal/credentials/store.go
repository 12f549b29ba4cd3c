package credentials

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/codexbuild/internal/constants"
	"github.com/mrz1836/codexbuild/internal/ctxutil"
	"github.com/mrz1836/codexbuild/internal/errors"
)

// Store looks up credential records by reference.
// Lookup returns an error matching errors.ErrCredentialNotFound when the
// reference is unknown to the store.
type Store interface {
	Lookup(ctx context.Context, ref string) (*Record, error)
}

// MapStore is an in-memory Store.
type MapStore map[string]Record

// Lookup implements Store.
func (s MapStore) Lookup(ctx context.Context, ref string) (*Record, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	rec, ok := s[ref]
	if !ok {
		return nil, errors.Wrapf(errors.ErrCredentialNotFound, "reference %q", ref)
	}
	return &rec, nil
}

// ChainStore consults each store in order and returns the first hit.
// A store error other than not-found stops the search.
type ChainStore []Store

// Lookup implements Store.
func (c ChainStore) Lookup(ctx context.Context, ref string) (*Record, error) {
	for _, s := range c {
		rec, err := s.Lookup(ctx, ref)
		if err == nil {
			return rec, nil
		}
		if !stderrors.Is(err, errors.ErrCredentialNotFound) {
			return nil, err
		}
	}
	return nil, errors.Wrapf(errors.ErrCredentialNotFound, "reference %q", ref)
}

// fileStoreDocument is the on-disk layout of a credentials file:
//
//	credentials:
//	  openai:
//	    kind: secret_text
//	    secret: sk-...
//	  deploy-key:
//	    kind: ssh_private_key
//	    private_key_file: keys/deploy
type fileStoreDocument struct {
	Credentials map[string]Record `yaml:"credentials"`
}

// LoadFileStore reads a YAML credentials file. Relative private_key_file
// paths are resolved against the file's directory.
func LoadFileStore(path string) (MapStore, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCredentialStore, "read %s: %s", path, err.Error())
	}

	var doc fileStoreDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(errors.ErrCredentialStore, "parse %s: %s", path, err.Error())
	}

	store := make(MapStore, len(doc.Credentials))
	baseDir := filepath.Dir(path)
	for ref, rec := range doc.Credentials {
		if rec.PrivateKeyFile != "" && !filepath.IsAbs(rec.PrivateKeyFile) {
			rec.PrivateKeyFile = filepath.Join(baseDir, rec.PrivateKeyFile)
		}
		store[ref] = rec
	}
	return store, nil
}

// FileStore is a Store backed by a YAML credentials file that is read on
// first lookup, so an unreadable file fails the stage that needs it.
type FileStore struct {
	Path string

	once  sync.Once
	store MapStore
	err   error
}

// NewFileStore creates a FileStore for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Lookup implements Store.
func (s *FileStore) Lookup(ctx context.Context, ref string) (*Record, error) {
	s.once.Do(func() {
		s.store, s.err = LoadFileStore(s.Path)
	})
	if s.err != nil {
		return nil, s.err
	}
	return s.store.Lookup(ctx, ref)
}

// EnvStore resolves references from host-injected environment variables.
// For reference "deploy-key" it reads CODEXBUILD_CRED_DEPLOY_KEY_<FIELD>
// where FIELD is SECRET, USERNAME, PASSWORD, SSH_KEY, SSH_KEY_FILE or
// PASSPHRASE. The kind follows from which fields are present.
type EnvStore struct {
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Lookup implements Store.
func (s EnvStore) Lookup(ctx context.Context, ref string) (*Record, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	getenv := s.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	prefix := EnvVarPrefix(ref)
	get := func(field string) string { return getenv(prefix + field) }

	switch {
	case get("SSH_KEY") != "" || get("SSH_KEY_FILE") != "":
		return &Record{
			Kind:           KindSSHPrivateKey,
			PrivateKey:     get("SSH_KEY"),
			PrivateKeyFile: get("SSH_KEY_FILE"),
			Passphrase:     get("PASSPHRASE"),
		}, nil
	case get("USERNAME") != "":
		return &Record{Kind: KindUsernamePassword, Username: get("USERNAME"), Password: get("PASSWORD")}, nil
	case get("SECRET") != "":
		return &Record{Kind: KindSecretText, Secret: get("SECRET")}, nil
	}
	return nil, errors.Wrapf(errors.ErrCredentialNotFound, "reference %q", ref)
}

// EnvVarPrefix returns the environment variable prefix for a reference:
// upper-cased, with every character outside [A-Z0-9] replaced by '_'.
func EnvVarPrefix(ref string) string {
	var b strings.Builder
	b.WriteString(constants.EnvCredentialPrefix)
	for _, r := range strings.ToUpper(ref) {
		if r < unicode.MaxASCII && (unicode.IsUpper(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	b.WriteByte('_')
	return b.String()
}

// ScrubEnv returns env without host-injected credential variables. Child
// processes get their credentials only through the scoped access a stage
// acquired.
func ScrubEnv(env []string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if strings.HasPrefix(strings.ToUpper(kv), constants.EnvCredentialPrefix) {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// Environ is os.Environ with credential variables removed.
func Environ() []string {
	return ScrubEnv(os.Environ())
}
