package state

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"pyrediff/internal/environment"

	"github.com/google/go-github/v81/github"
	"golang.org/x/oauth2"
)

// GitHubState materializes a sandbox from a repository archive at a ref.
// Useful when the two sides of a comparison are "repo X at commit A" and a
// scripted mutation toward commit B.
type GitHubState struct {
	Owner      string
	Repository string
	// Ref is a branch, tag, or commit SHA; empty means the default branch.
	Ref string
	// Token overrides auth resolution; empty falls back to GITHUB_TOKEN and
	// the gh CLI.
	Token string
}

func (s GitHubState) ActivateSandbox(ctx context.Context, env environment.Environment) (string, func() error, error) {
	if s.Owner == "" || s.Repository == "" {
		return "", nil, errors.New("github state: owner and repository are required")
	}

	token, _, err := resolveAuthToken(ctx, s.Token)
	if err != nil {
		return "", nil, fmt.Errorf("github state: resolving auth token: %w", err)
	}

	httpClient := newHTTPClient(token)
	client := github.NewClient(httpClient)

	var opts *github.RepositoryContentGetOptions
	if s.Ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: s.Ref}
	}
	archiveURL, _, err := client.Repositories.GetArchiveLink(ctx, s.Owner, s.Repository, github.Tarball, opts, 3)
	if err != nil {
		return "", nil, fmt.Errorf("github state: resolving archive for %s/%s@%s: %w", s.Owner, s.Repository, s.Ref, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL.String(), nil)
	if err != nil {
		return "", nil, fmt.Errorf("github state: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("github state: downloading archive: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("github state: archive download returned %d", resp.StatusCode)
	}

	root, err := os.MkdirTemp("", "pyrediff-sandbox-")
	if err != nil {
		return "", nil, fmt.Errorf("github state: creating sandbox: %w", err)
	}
	if err := untarInto(root, resp.Body); err != nil {
		_ = os.RemoveAll(root)
		return "", nil, fmt.Errorf("github state: unpacking archive: %w", err)
	}
	return root, func() error { return os.RemoveAll(root) }, nil
}

func newHTTPClient(token string) *http.Client {
	transport := http.DefaultTransport
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	return &http.Client{Transport: transport}
}

// untarInto unpacks a gzipped tarball into root, stripping the archive's
// single top-level directory (GitHub prefixes entries with owner-repo-sha/).
func untarInto(root string, r io.Reader) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		name := stripTopLevel(header.Name)
		if name == "" {
			continue
		}
		target, err := resolveInside(root, name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode)&0o777)
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		default:
			// Symlinks and the rest are irrelevant to checker input trees.
		}
	}
}

func stripTopLevel(name string) string {
	name = strings.TrimPrefix(name, "./")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return ""
}
