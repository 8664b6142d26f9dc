package github

import "encoding/json"

// Repo is the subset of the repository resource the agent reads
type Repo struct {
	FullName      string   `json:"full_name"`
	Description   string   `json:"description"`
	DefaultBranch string   `json:"default_branch"`
	Topics        []string `json:"topics"`
	HTMLURL       string   `json:"html_url"`
	License       *License `json:"license"`
}

// License names the detected repository license
type License struct {
	Key    string `json:"key"`
	SPDXID string `json:"spdx_id"`
}

// Commit is one entry of the commits listing
type Commit struct {
	SHA string `json:"sha"`
}

// Issue is the subset of the issue resource the thread builder needs
type Issue struct {
	Number  int     `json:"number"`
	Title   string  `json:"title"`
	Body    string  `json:"body"`
	HTMLURL string  `json:"html_url"`
	User    User    `json:"user"`
	Labels  []Label `json:"labels"`
}

// User identifies an upstream account
type User struct {
	Login string `json:"login"`
}

// Label is an issue label
type Label struct {
	Name string `json:"name"`
}

// Comment is one issue comment
type Comment struct {
	ID      int64  `json:"id"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
	User    User   `json:"user"`
}

func unmarshal(b []byte, out any) error { return json.Unmarshal(b, out) }
