package updater

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/oshokin/emby-beta-updater/internal/domain/release"
	"github.com/oshokin/emby-beta-updater/internal/logger"
	"github.com/oshokin/emby-beta-updater/internal/repository/dpkg"
)

const (
	// artifactFileMode is the permission of the downloaded package file.
	artifactFileMode os.FileMode = 0o600
	// downloadDirMode is used when the download directory has to be created.
	downloadDirMode os.FileMode = 0o750
	// workDirPattern names the private per-run directory inside the download directory.
	workDirPattern = "download-"

	digestPrefixSHA256 = "sha256:"
)

var (
	errNoArtifactName    = errors.New("download url has no file name")
	errBadDigest         = errors.New("malformed asset digest")
	errDigestMismatch    = errors.New("sha256 digest mismatch")
	errSizeMismatch      = errors.New("artifact size mismatch")
	errUnsafeDownloadDir = errors.New("download directory is writable by other users")
)

// ArtifactSource streams release assets.
type ArtifactSource interface {
	OpenAsset(ctx context.Context, assetURL string) (io.ReadCloser, error)
}

// Installer downloads an artifact, hands it to the package manager and removes it.
type Installer struct {
	// source downloads assets.
	source ArtifactSource
	// packages installs the downloaded archive.
	packages dpkg.Repository
	// dir holds the private per-run directories.
	dir string
	// remove deletes a per-run directory after installation.
	remove func(path string) error
}

// NewInstaller creates an installer that downloads below dir.
func NewInstaller(source ArtifactSource, packages dpkg.Repository, dir string) *Installer {
	return &Installer{
		source:   source,
		packages: packages,
		dir:      dir,
		remove:   os.RemoveAll,
	}
}

// Install downloads asset, installs it and deletes the file.
//
// The artifact is written into a fresh 0700 directory created for this run, so
// nothing another user placed in the download directory can be installed.
// With simulate set nothing touches the network, the filesystem or the package
// manager: the same steps are only logged at debug level and Install returns nil.
// Errors wrap ErrDownloadFailure or ErrInstallFailure. A failed cleanup is logged
// as a warning and does not fail an otherwise successful install.
func (i *Installer) Install(ctx context.Context, asset release.Asset, simulate bool) error {
	fileName, err := artifactFileName(asset.DownloadURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDownloadFailure, err)
	}

	logger.InfoKV(ctx, "Planned artifact", "dir", i.dir, "file", fileName)

	if simulate {
		logger.DebugKV(ctx, "Simulating download", "url", asset.DownloadURL, "file", fileName)
		logger.DebugKV(ctx, "Simulating installation", "command", "dpkg -i "+fileName)
		logger.DebugKV(ctx, "Simulating cleanup", "file", fileName)

		return nil
	}

	workDir, err := i.makeWorkDir()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDownloadFailure, err)
	}

	target := filepath.Join(workDir, fileName)

	logger.InfoKV(ctx, "Downloading artifact", "url", asset.DownloadURL, "file", target)

	if err = i.download(ctx, asset, target); err != nil {
		_ = os.RemoveAll(workDir)

		return fmt.Errorf("%w: %w", ErrDownloadFailure, err)
	}

	logger.InfoKV(ctx, "Installing artifact", "file", target)

	if err = i.packages.Install(ctx, target); err != nil {
		return fmt.Errorf("%w: %w", ErrInstallFailure, err)
	}

	logger.DebugKV(ctx, "Removing downloaded artifact", "dir", workDir)

	if err = i.remove(workDir); err != nil {
		logger.WarnKV(ctx, "Could not remove downloaded artifact", "dir", workDir, "error", err)
	}

	return nil
}

// makeWorkDir refuses a download directory other users can write to and creates
// a private directory inside it.
func (i *Installer) makeWorkDir() (string, error) {
	if err := os.MkdirAll(i.dir, downloadDirMode); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}

	info, err := os.Stat(i.dir)
	if err != nil {
		return "", fmt.Errorf("inspect download directory: %w", err)
	}

	if info.Mode().Perm()&0o002 != 0 {
		return "", fmt.Errorf("%s (%s): %w", i.dir, info.Mode().Perm(), errUnsafeDownloadDir)
	}

	workDir, err := os.MkdirTemp(i.dir, workDirPattern)
	if err != nil {
		return "", fmt.Errorf("create private download directory: %w", err)
	}

	return workDir, nil
}

// download streams the asset into a new file at target, verifying the digest
// and size when the feed publishes them.
func (i *Installer) download(ctx context.Context, asset release.Asset, target string) error {
	checksum, err := parseDigest(asset.Digest)
	if err != nil {
		return err
	}

	if checksum == nil {
		logger.Debug(ctx, "No SHA-256 digest published, skipping checksum verification")
	}

	body, err := i.source.OpenAsset(ctx, asset.DownloadURL)
	if err != nil {
		return err
	}

	defer func() {
		_ = body.Close()
	}()

	f, err := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_EXCL|os.O_WRONLY, artifactFileMode)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}

	hasher := sha256.New()

	written, err := io.Copy(io.MultiWriter(f, hasher), body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}

	if err = verifyArtifact(asset, written, checksum, hasher); err != nil {
		return err
	}

	logger.DebugKV(ctx, "Download finished", "file", target, "bytes", written)

	return nil
}

// verifyArtifact compares the received bytes with what the feed announced.
func verifyArtifact(asset release.Asset, written int64, checksum []byte, hasher hash.Hash) error {
	if asset.Size > 0 && written != asset.Size {
		return fmt.Errorf("%w: got %d bytes, feed lists %d", errSizeMismatch, written, asset.Size)
	}

	if checksum == nil {
		return nil
	}

	if sum := hasher.Sum(nil); !bytes.Equal(sum, checksum) {
		return fmt.Errorf("%w: got %x, feed lists %x", errDigestMismatch, sum, checksum)
	}

	return nil
}

// artifactFileName returns the last path segment of the download URL.
func artifactFileName(downloadURL string) (string, error) {
	u, err := url.Parse(downloadURL)
	if err != nil {
		return "", fmt.Errorf("parse download url: %w", err)
	}

	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", fmt.Errorf("%s: %w", downloadURL, errNoArtifactName)
	}

	return name, nil
}

// parseDigest decodes a "sha256:<hex>" digest. Other algorithms and empty digests yield nil.
func parseDigest(digest string) ([]byte, error) {
	digest = strings.TrimSpace(digest)
	if !strings.HasPrefix(strings.ToLower(digest), digestPrefixSHA256) {
		return nil, nil
	}

	sum, err := hex.DecodeString(digest[len(digestPrefixSHA256):])
	if err != nil || len(sum) != sha256.Size {
		return nil, fmt.Errorf("%q: %w", digest, errBadDigest)
	}

	return sum, nil
}
