package parchment

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/git-pkgs/switchboard/internal/core"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

const releasePrefix = "releases/"

// TagLister returns the full tag ref names of a repository.
type TagLister interface {
	ListTags(ctx context.Context) ([]string, error)
}

// Cloner lists tags by cloning a repository without a working tree into
// Dir. Any previous copy in Dir is removed first. Calls are serialized.
type Cloner struct {
	URL string
	Dir string

	mu sync.Mutex
}

func (c *Cloner) ListTags(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.reset(); err != nil {
		return nil, err
	}

	repo, err := git.PlainCloneContext(ctx, c.Dir, false, &git.CloneOptions{
		URL:        c.URL,
		NoCheckout: true,
		Tags:       git.AllTags,
	})
	if err != nil {
		return nil, fmt.Errorf("cloning %s: %w", c.URL, err)
	}

	iter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer iter.Close()

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().String())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return names, nil
}

// reset deletes the previous working copy, if there is one, and makes sure
// the parent directory exists.
func (c *Cloner) reset() error {
	if c.Dir == "" {
		return fmt.Errorf("parchment: %w: work directory", core.ErrMissingDependency)
	}
	_, err := os.Stat(c.Dir)
	switch {
	case err == nil:
		if err := os.RemoveAll(c.Dir); err != nil {
			return fmt.Errorf("removing %s: %w", c.Dir, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("checking %s: %w", c.Dir, err)
	}
	return os.MkdirAll(filepath.Dir(c.Dir), 0o755)
}

// ParseTag parses a ref such as "refs/tags/releases/1.21.1-2024.01.01".
// The base version may itself contain dashes, so the split is on the last
// one.
func ParseTag(ref string) (core.TaggedRelease, bool) {
	name := strings.TrimPrefix(ref, "refs/tags/")
	name, ok := strings.CutPrefix(name, releasePrefix)
	if !ok {
		return core.TaggedRelease{}, false
	}

	dash := strings.LastIndexByte(name, '-')
	if dash <= 0 || dash == len(name)-1 {
		return core.TaggedRelease{}, false
	}
	return core.TaggedRelease{
		Version:     name[dash+1:],
		BaseVersion: name[:dash],
		Stable:      true,
	}, true
}
