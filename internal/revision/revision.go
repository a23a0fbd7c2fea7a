// Package revision reads the git commit of the site sources so templates can
// stamp pages with it.
package revision

import (
	"errors"
	"time"

	ggit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Info describes the HEAD commit. The zero value means "not a repository".
type Info struct {
	Commit  string
	Short   string
	Branch  string
	Time    time.Time
	Subject string
}

// Map returns the fields exposed as .Site.Revision.
func (i Info) Map() map[string]any {
	return map[string]any{
		"Commit":  i.Commit,
		"Short":   i.Short,
		"Branch":  i.Branch,
		"Time":    i.Time,
		"Subject": i.Subject,
	}
}

// Detect opens the repository containing dir, searching parent directories.
// A directory outside any repository yields the zero Info and no error.
func Detect(dir string) (Info, error) {
	repo, err := ggit.PlainOpenWithOptions(dir, &ggit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, ggit.ErrRepositoryNotExists) {
			return Info{}, nil
		}
		return Info{}, err
	}

	ref, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			// Freshly initialized repository without commits.
			return Info{}, nil
		}
		return Info{}, err
	}

	info := Info{Commit: ref.Hash().String()}
	info.Short = info.Commit
	if len(info.Short) > 8 {
		info.Short = info.Short[:8]
	}
	if ref.Name().IsBranch() {
		info.Branch = ref.Name().Short()
	}

	if commit, err := repo.CommitObject(ref.Hash()); err == nil {
		info.Time = commit.Committer.When
		info.Subject = firstLine(commit.Message)
	}
	return info, nil
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
