package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v81/github"
)

// FetchedDoc represents a document fetched from a GitHub repository.
type FetchedDoc struct {
	Path    string // Relative path within the base directory
	Content string // Full file content
	SHA     string // File's Git blob SHA
	URL     string // GitHub raw URL
}

// Fetcher lists and downloads documents from one repository directory.
type Fetcher struct {
	client     *Client
	owner      string
	repo       string
	basePath   string
	extensions map[string]bool
}

// NewFetcher creates a fetcher for owner/repo limited to basePath.
// extensions filters which files count as documents (lowercase, no dot);
// empty means every file.
func NewFetcher(client *Client, owner, repo, basePath string, extensions []string) *Fetcher {
	extSet := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = true
	}
	return &Fetcher{
		client:     client,
		owner:      owner,
		repo:       repo,
		basePath:   basePath,
		extensions: extSet,
	}
}

// ListDocs recursively lists all matching files under the base path.
func (f *Fetcher) ListDocs(ctx context.Context) ([]string, error) {
	return f.listDocsRecursive(ctx, f.basePath, "")
}

func (f *Fetcher) listDocsRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	var docs []string

	_, dirContents, _, err := f.client.Repositories.GetContents(
		ctx,
		f.owner,
		f.repo,
		fullPath,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", fullPath, err)
	}

	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}

		itemRelPath := path.Join(relativePath, *item.Name)

		switch *item.Type {
		case "file":
			if f.matches(*item.Name) {
				docs = append(docs, itemRelPath)
			}

		case "dir":
			itemFullPath := path.Join(fullPath, *item.Name)
			subDocs, err := f.listDocsRecursive(ctx, itemFullPath, itemRelPath)
			if err != nil {
				return nil, err
			}
			docs = append(docs, subDocs...)
		}
	}

	return docs, nil
}

func (f *Fetcher) matches(name string) bool {
	if len(f.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	return f.extensions[ext]
}

// FetchDoc fetches the content of a specific file.
func (f *Fetcher) FetchDoc(ctx context.Context, relativePath string) (*FetchedDoc, error) {
	fullPath := path.Join(f.basePath, relativePath)

	fileContent, _, _, err := f.client.Repositories.GetContents(
		ctx,
		f.owner,
		f.repo,
		fullPath,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", fullPath, err)
	}

	if fileContent == nil {
		return nil, fmt.Errorf("no file content returned for %s", fullPath)
	}

	content, err := base64.StdEncoding.DecodeString(*fileContent.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", fullPath, err)
	}

	rawURL := fmt.Sprintf(
		"https://raw.githubusercontent.com/%s/%s/main/%s",
		f.owner,
		f.repo,
		fullPath,
	)

	return &FetchedDoc{
		Path:    relativePath,
		Content: string(content),
		SHA:     *fileContent.SHA,
		URL:     rawURL,
	}, nil
}

// GetLatestCommitSHA retrieves the SHA of the most recent commit affecting
// the base path.
func (f *Fetcher) GetLatestCommitSHA(ctx context.Context) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(
		ctx,
		f.owner,
		f.repo,
		&github.CommitsListOptions{
			Path: f.basePath,
			ListOptions: github.ListOptions{
				PerPage: 1,
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}

	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for path %s", f.basePath)
	}

	if commits[0].SHA == nil {
		return "", fmt.Errorf("commit SHA is nil")
	}

	return *commits[0].SHA, nil
}

// DownloadAll fetches every matching document into destDir and returns the
// written file paths. Nested repository paths flatten into single filenames
// (docs/a/b.md becomes a__b.md) because filename is document identity
// downstream.
func (f *Fetcher) DownloadAll(ctx context.Context, destDir string) ([]string, error) {
	paths, err := f.ListDocs(ctx)
	if err != nil {
		return nil, err
	}

	written := make([]string, 0, len(paths))
	for _, relPath := range paths {
		doc, err := f.FetchDoc(ctx, relPath)
		if err != nil {
			return written, fmt.Errorf("fetching %s: %w", relPath, err)
		}
		name := strings.ReplaceAll(relPath, "/", "__")
		dest := filepath.Join(destDir, name)
		if err := os.WriteFile(dest, []byte(doc.Content), 0o600); err != nil {
			return written, fmt.Errorf("writing %s: %w", dest, err)
		}
		written = append(written, dest)
	}
	return written, nil
}
