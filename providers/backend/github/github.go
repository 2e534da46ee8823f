package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/go-github/v63/github"
	"golang.org/x/oauth2"
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"

	"github.com/NickMagic25/kubeegg/manifest"
)

const (
	defaultBranchName = "main"
	manifestRoot      = "apps"
)

func NewBackend() *Backend {
	return &Backend{
		Name:       "github",
		Org:        os.Getenv("GITHUB_ORG"),
		Repo:       os.Getenv("GITHUB_REPO"),
		Token:      os.Getenv("GITHUB_TOKEN"),
		branchName: os.Getenv("GITHUB_BRANCH"),
	}
}

type Backend struct {
	Name  string
	Org   string
	Repo  string
	Token string

	client     *github.Client
	user       *github.User
	branchName string
}

func (b *Backend) PreCmd(ctx context.Context, appName string) error {
	if b.Token == "" {
		return errors.New("GITHUB_TOKEN is required")
	}
	if b.Org == "" {
		return errors.New("GITHUB_ORG is required")
	}
	if b.Repo == "" {
		return errors.New("GITHUB_REPO is required")
	}
	if b.branchName == "" {
		klog.Infof("GITHUB_BRANCH is not set, defaulting to %s", defaultBranchName)
		b.branchName = defaultBranchName
	}

	klog.V(4).Infof("[github backend] validating manifest repo %s/%s for app %s", b.Org, b.Repo, appName)

	client, user, err := authenticate(ctx, b.Token, b.Org, b.Repo)
	if err != nil {
		return fmt.Errorf("[github backend] failed to authenticate to repo %s/%s: %w", b.Org, b.Repo, err)
	}
	b.client = client
	b.user = user

	if _, _, err := b.client.Repositories.GetBranch(ctx, b.Org, b.Repo, b.branchName, 2); err != nil {
		return fmt.Errorf("[github backend] branch %s may not exist in repo %s/%s: %w", b.branchName, b.Org, b.Repo, err)
	}

	klog.Infof("[github backend] authenticated to manifest repo %s/%s on branch %s", b.Org, b.Repo, b.branchName)
	return nil
}

// WriteManifests commits each document under apps/<appName>/ on the
// configured branch, creating or updating as needed.
func (b *Backend) WriteManifests(ctx context.Context, appName string, files []manifest.File) ([]string, error) {
	written := make([]string, 0, len(files))
	for _, file := range files {
		remotePath := path.Join(manifestRoot, appName, file.Name)
		if err := b.uploadFile(ctx, file.Content, remotePath, appName); err != nil {
			return nil, fmt.Errorf("failed to write manifest %s: %w", remotePath, err)
		}
		klog.V(4).Infof("[github backend] wrote manifest %s for app %s to %s/%s", remotePath, appName, b.Org, b.Repo)
		written = append(written, remotePath)
	}
	return written, nil
}

func (b *Backend) uploadFile(ctx context.Context, content []byte, remotePath, appName string) error {
	// need the existing SHA to decide between create and update
	existing, _, httpResp, err := b.client.Repositories.GetContents(ctx, b.Org, b.Repo, remotePath, &github.RepositoryContentGetOptions{
		Ref: b.branchName,
	})
	if err != nil {
		if httpResp == nil {
			return err
		}
		switch httpResp.StatusCode {
		case http.StatusNotFound, http.StatusOK, http.StatusFound, http.StatusNotModified:
			// expected
		case http.StatusForbidden:
			return fmt.Errorf("failed to upload manifest %s due to permissions error: %w", remotePath, err)
		default:
			return err
		}
	}

	options := &github.RepositoryContentFileOptions{
		Content: content,
		Branch:  ptr.To(b.branchName),
		Committer: &github.CommitAuthor{
			Date:  &github.Timestamp{Time: time.Now()},
			Name:  b.user.Name,
			Email: b.user.Email,
			Login: b.user.Login,
		},
	}
	if httpResp.StatusCode == http.StatusNotFound {
		options.Message = ptr.To(fmt.Sprintf("creating manifest for app %s", appName))
		_, _, err = b.client.Repositories.CreateFile(ctx, b.Org, b.Repo, remotePath, options)
		return err
	}
	options.SHA = existing.SHA
	options.Message = ptr.To(fmt.Sprintf("updating manifest for app %s", appName))
	_, _, err = b.client.Repositories.UpdateFile(ctx, b.Org, b.Repo, remotePath, options)
	return err
}

// Delete rewrites the branch tree without the apps/<appName>/ entries and
// points the branch at the resulting commit.
func (b *Backend) Delete(ctx context.Context, appName string) error {
	klog.V(4).Infof("[github backend] deleting manifests for app %s in %s/%s", appName, b.Org, b.Repo)

	branch, _, err := b.client.Repositories.GetBranch(ctx, b.Org, b.Repo, b.branchName, 2)
	if err != nil {
		return err
	}
	tree, _, err := b.client.Git.GetTree(ctx, b.Org, b.Repo, branch.Commit.GetSHA(), true)
	if err != nil {
		return err
	}

	appDir := path.Join(manifestRoot, appName)
	for _, entry := range tree.Entries {
		if strings.HasPrefix(entry.GetPath(), appDir) {
			// nil content and sha marks the entry as deleted
			entry.SHA = nil
			entry.Content = nil
		}
	}

	newTree, _, err := b.client.Git.CreateTree(ctx, b.Org, b.Repo, branch.Commit.GetSHA(), tree.Entries)
	if err != nil {
		return err
	}

	commit := &github.Commit{
		SHA:  newTree.SHA,
		Tree: newTree,
		Author: &github.CommitAuthor{
			Date:  &github.Timestamp{Time: time.Now()},
			Name:  b.user.Name,
			Email: b.user.Email,
			Login: b.user.Login,
		},
		Parents: branch.GetCommit().Parents,
		Message: ptr.To(fmt.Sprintf("deleting manifests for app %s", appName)),
	}
	newCommit, _, err := b.client.Git.CreateCommit(ctx, b.Org, b.Repo, commit, &github.CreateCommitOptions{})
	if err != nil {
		return err
	}

	ref := &github.Reference{
		Ref: ptr.To(path.Join("heads", branch.GetName())),
		Object: &github.GitObject{
			Type: ptr.To("commit"),
			SHA:  newCommit.SHA,
		},
	}
	if _, _, err = b.client.Git.UpdateRef(ctx, b.Org, b.Repo, ref, true); err != nil {
		return err
	}
	klog.Infof("[github backend] deleted manifests for app %s from %s/%s", appName, b.Org, b.Repo)
	return nil
}

func authenticate(ctx context.Context, token, org, repo string) (*github.Client, *github.User, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, source))

	user, _, err := client.Users.Get(ctx, org)
	if err != nil {
		return nil, nil, err
	}

	// validate we have access to the repository
	_, resp, err := client.Repositories.Get(ctx, org, repo)
	if err != nil || resp.StatusCode != http.StatusOK {
		return nil, nil, err
	}
	return client, user, nil
}
