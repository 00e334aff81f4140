package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Conceptual-Machines/intprep/internal/logger"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// DefaultKeyName is the variable holding the Groq API key
const DefaultKeyName = "GROQ_API_KEY"

const secretsRelativePath = ".streamlit/secrets.toml"

// ErrNotFound is returned when no source provides the key
var ErrNotFound = errors.New("credential not found")

// Resolver looks up the API key from, in order: the process environment,
// local .env files merged into the environment, and a secrets.toml file.
// Resolve is called once per completion so rotated keys are picked up.
type Resolver struct {
	keyName      string
	envFiles     []string
	secretsPaths []string
	lookupEnv    func(string) (string, bool)
	loadEnvFiles func(filenames ...string) error
	readFile     func(string) ([]byte, error)
	fileExists   func(string) bool
}

// Option configures a Resolver
type Option func(*Resolver)

// WithEnvLookup replaces the environment lookup
func WithEnvLookup(lookup func(string) (string, bool)) Option {
	return func(r *Resolver) { r.lookupEnv = lookup }
}

// WithEnvFiles sets the .env files merged before the second lookup
func WithEnvFiles(files ...string) Option {
	return func(r *Resolver) { r.envFiles = files }
}

// WithEnvLoader replaces the .env merge step
func WithEnvLoader(load func(filenames ...string) error) Option {
	return func(r *Resolver) { r.loadEnvFiles = load }
}

// WithSecretsPaths sets the secrets.toml candidates, probed in order
func WithSecretsPaths(paths ...string) Option {
	return func(r *Resolver) { r.secretsPaths = paths }
}

// WithFileSystem replaces file probing and reading
func WithFileSystem(exists func(string) bool, read func(string) ([]byte, error)) Option {
	return func(r *Resolver) {
		r.fileExists = exists
		r.readFile = read
	}
}

// NewResolver creates a resolver for keyName using the real environment and filesystem
func NewResolver(keyName string, opts ...Option) *Resolver {
	if keyName == "" {
		keyName = DefaultKeyName
	}
	r := &Resolver{
		keyName:      keyName,
		envFiles:     []string{".env"},
		secretsPaths: DefaultSecretsPaths(),
		lookupEnv:    os.LookupEnv,
		loadEnvFiles: godotenv.Load,
		readFile:     os.ReadFile,
		fileExists:   fileExists,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultSecretsPaths returns the project and home secrets.toml locations
func DefaultSecretsPaths() []string {
	paths := []string{}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, secretsRelativePath))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, secretsRelativePath))
	}
	return paths
}

// KeyName returns the variable name this resolver looks up
func (r *Resolver) KeyName() string {
	return r.keyName
}

// Resolve returns the API key or ErrNotFound
func (r *Resolver) Resolve() (string, error) {
	if key, ok := r.fromEnv(); ok {
		return key, nil
	}

	// godotenv never overrides variables that are already set
	if err := r.loadEnvFiles(r.envFiles...); err != nil {
		logger.Debug("No .env file merged", logger.Fields{"error": err.Error()})
	}
	if key, ok := r.fromEnv(); ok {
		return key, nil
	}

	for _, path := range r.secretsPaths {
		if !r.fileExists(path) {
			continue
		}
		key, err := r.fromSecretsFile(path)
		if err != nil {
			logger.Warn("Ignoring unreadable secrets file", logger.Fields{
				"path":  path,
				"error": err.Error(),
			})
			continue
		}
		if key != "" {
			return key, nil
		}
	}

	return "", fmt.Errorf("%w: set %s in the environment, a .env file or .streamlit/secrets.toml", ErrNotFound, r.keyName)
}

func (r *Resolver) fromEnv() (string, bool) {
	value, ok := r.lookupEnv(r.keyName)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func (r *Resolver) fromSecretsFile(path string) (string, error) {
	data, err := r.readFile(path)
	if err != nil {
		return "", err
	}

	var secrets map[string]any
	if err := toml.Unmarshal(data, &secrets); err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", path, err)
	}

	value, ok := secrets[r.keyName].(string)
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(value), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
