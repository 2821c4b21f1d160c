package hindibpe

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

const (
	// CorpusPathEnvVar overrides corpus resolution entirely.
	CorpusPathEnvVar = "HINDI_BPE_CORPUS_PATH"

	DownloadTimeout = 60 * time.Second

	corpusReadChunk = 1 << 20 // 1MB
)

// LoadCorpus reads a UTF-8 text corpus from path, transparently gunzipping
// .gz files, and validates the encoding up front so training never sees
// malformed input. Reading happens in 1MB chunks.
func LoadCorpus(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open corpus file: %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if filepath.Ext(path) == ".gz" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return "", errors.Wrapf(err, "failed to open gzip stream: %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	var sb strings.Builder
	buf := make([]byte, corpusReadChunk)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			sb.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.Wrapf(err, "failed to read corpus file: %s", path)
		}
	}

	text := sb.String()
	if off := validateUTF8(text); off >= 0 {
		return "", errors.Wrapf(ErrInvalidEncoding, "corpus file %s, byte offset %d", path, off)
	}
	return text, nil
}

// ResolveCorpus locates a corpus by priority:
//  1. HINDI_BPE_CORPUS_PATH environment variable
//  2. Previously cached download for url
//  3. Fresh download into the cache
//
// url may be empty when the environment variable is expected to be set.
func ResolveCorpus(url string) (string, error) {
	if envPath := os.Getenv(CorpusPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", errors.Wrapf(err, "corpus not found at %s: %s", CorpusPathEnvVar, envPath)
		}
		return envPath, nil
	}
	if url == "" {
		return "", errors.Errorf("no corpus URL given and %s is not set", CorpusPathEnvVar)
	}
	cached := CachedCorpusPath(url)
	if fi, err := os.Stat(cached); err == nil && fi.Size() > 0 {
		return cached, nil
	}
	if err := FetchCorpus(url, cached, ""); err != nil {
		return "", err
	}
	return cached, nil
}

// CachedCorpusPath returns the cache location for a corpus URL.
func CachedCorpusPath(url string) string {
	name := filepath.Base(url)
	if name == "" || name == "." || name == "/" {
		name = "corpus.txt"
	}
	return filepath.Join(getCacheDir(), name)
}

// FetchCorpus downloads url to dest through a temp file, optionally
// verifying a hex-encoded sha256 checksum before the file is moved into
// place. A failed or mismatched download never leaves a partial dest.
func FetchCorpus(url, dest, sha256sum string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create cache directory: %s", filepath.Dir(dest))
	}

	client := &http.Client{Timeout: DownloadTimeout}
	resp, err := client.Get(url)
	if err != nil {
		return errors.Wrapf(err, "failed to download corpus from %s", url)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("corpus download failed with status %d: %s", resp.StatusCode, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".corpus-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), resp.Body); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to write corpus download")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close corpus download")
	}

	if sha256sum != "" {
		got := hex.EncodeToString(hasher.Sum(nil))
		if !strings.EqualFold(got, sha256sum) {
			return errors.Errorf("corpus checksum mismatch: expected %s, got %s", sha256sum, got)
		}
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return errors.Wrapf(err, "failed to move corpus into cache: %s", dest)
	}
	return nil
}

// getCacheDir returns the platform-specific cache directory for downloaded
// corpora.
func getCacheDir() string {
	var cacheDir string
	switch runtime.GOOS {
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil {
			cacheDir = filepath.Join(home, "Library", "Caches", "hindi-bpe", "corpus")
		}
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			cacheDir = filepath.Join(appData, "hindi-bpe", "corpus")
		}
	default:
		if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
			cacheDir = filepath.Join(xdgCache, "hindi-bpe", "corpus")
		} else if home, err := os.UserHomeDir(); err == nil {
			cacheDir = filepath.Join(home, ".cache", "hindi-bpe", "corpus")
		}
	}
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "hindi-bpe", "corpus")
	}
	return cacheDir
}
