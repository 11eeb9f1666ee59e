package webhook

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/dshills/codemate/internal/providers"
)

const (
	githubPullRequestEvent = "pull_request"
	gitlabMergeRequestKind = "merge_request"
	bitbucketPRPrefix      = "pullrequest:"
)

var (
	githubActions = []string{"opened", "synchronize", "reopened"}
	gitlabActions = []string{"open", "update", "reopen"}
)

type githubPayload struct {
	Action      string `json:"action"`
	PullRequest struct {
		Number int `json:"number"`
	} `json:"pull_request"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

type gitlabPayload struct {
	ObjectKind string `json:"object_kind"`
	Project    struct {
		PathWithNamespace string `json:"path_with_namespace"`
	} `json:"project"`
	ObjectAttributes struct {
		IID    int    `json:"iid"`
		Action string `json:"action"`
	} `json:"object_attributes"`
}

type bitbucketPayload struct {
	PullRequest struct {
		ID int `json:"id"`
	} `json:"pullrequest"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// filterAction fills in ev from the payload and reports whether the event is
// actionable. A non-actionable event is not an error.
func filterAction(ev *Event, body []byte) (bool, error) {
	switch ev.Platform {
	case providers.GitHub:
		return filterGitHub(ev, body)
	case providers.GitLab:
		return filterGitLab(ev, body)
	case providers.Bitbucket:
		return filterBitbucket(ev, body)
	}
	return false, ErrUnknownPlatform
}

func filterGitHub(ev *Event, body []byte) (bool, error) {
	if ev.Kind != githubPullRequestEvent {
		return false, nil
	}
	var p githubPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return false, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	ev.Action = p.Action
	if !slices.Contains(githubActions, p.Action) {
		return false, nil
	}
	return true, setTarget(ev, p.Repository.FullName, p.PullRequest.Number)
}

func filterGitLab(ev *Event, body []byte) (bool, error) {
	var p gitlabPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return false, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	ev.Action = p.ObjectAttributes.Action
	if p.ObjectKind != gitlabMergeRequestKind || !slices.Contains(gitlabActions, p.ObjectAttributes.Action) {
		return false, nil
	}
	return true, setTarget(ev, p.Project.PathWithNamespace, p.ObjectAttributes.IID)
}

// filterBitbucket accepts every pullrequest:* event key.
func filterBitbucket(ev *Event, body []byte) (bool, error) {
	if !hasPrefixFold(ev.Kind, bitbucketPRPrefix) {
		return false, nil
	}
	ev.Action = strings.ToLower(ev.Kind[len(bitbucketPRPrefix):])
	var p bitbucketPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return false, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	return true, setTarget(ev, p.Repository.FullName, p.PullRequest.ID)
}

func setTarget(ev *Event, repo string, number int) error {
	if repo == "" || number <= 0 {
		return fmt.Errorf("%w: missing repository or change number", ErrBadPayload)
	}
	ev.Repo = repo
	ev.ChangeID = strconv.Itoa(number)
	return nil
}
