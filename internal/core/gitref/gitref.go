// Package gitref derives typed selections from source-hosting page context.
// Everything here is pure: the DOM scraping itself happens in the browser
// extension, which hands us URLs and raw text.
package gitref

import (
	"net/url"
	"strconv"
	"strings"

	perr "gitstr/internal/platform/errors"
)

// RepoIdentity names a repository on a source host. Owner/Repo is the cache
// key and the dedup predicate against relay results.
type RepoIdentity struct {
	Host  string `json:"host"`
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// Slug returns "owner/repo"
func (r RepoIdentity) Slug() string { return r.Owner + "/" + r.Repo }

// WebURL returns the repository page URL
func (r RepoIdentity) WebURL() string { return "https://" + r.Host + "/" + r.Slug() }

// CloneURL returns the conventional https clone URL
func (r RepoIdentity) CloneURL() string { return r.WebURL() + ".git" }

// IsZero reports whether the identity is unset
func (r RepoIdentity) IsZero() bool { return r.Owner == "" || r.Repo == "" }

// RepoMetadata holds optional page-derived repository facts
type RepoMetadata struct {
	Description string   `json:"description,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	License     string   `json:"license,omitempty"`
	Runtime     string   `json:"runtime,omitempty"`
}

// CommitInfo is the latest-commit fact the page exposes for the viewed ref
type CommitInfo struct {
	FullHash  string `json:"full_hash"`
	ShortHash string `json:"short_hash"`
	Message   string `json:"message"`
}

// PermalinkSelection is a permalinked file range
type PermalinkSelection struct {
	Identity  RepoIdentity `json:"identity"`
	Branch    string       `json:"branch"`
	FilePath  string       `json:"file_path"`
	StartLine int          `json:"start_line,omitempty"` // 0 = unset
	EndLine   int          `json:"end_line,omitempty"`   // 0 = unset
	Content   string       `json:"content"`
}

// SnippetSelection is a whole-file snippet with page-derived description
type SnippetSelection struct {
	Identity    RepoIdentity `json:"identity"`
	Branch      string       `json:"branch"`
	FilePath    string       `json:"file_path"`
	Content     string       `json:"content"`
	Description string       `json:"description"`
	License     string       `json:"license,omitempty"`
	Runtime     string       `json:"runtime,omitempty"`
}

// SnippetDescription is the user-supplied override collected by the extension
// dialog; either field may be empty to fall back to the page-derived value
type SnippetDescription struct {
	Description string `json:"description,omitempty"`
	Runtime     string `json:"runtime,omitempty"`
}

// IssueRef locates an issue or pull request thread
type IssueRef struct {
	Identity RepoIdentity `json:"identity"`
	Number   int          `json:"number"`
	IsPull   bool         `json:"is_pull"`
}

// ParsePageURL resolves a page URL to a repository identity.
// Any path with at least owner and repo segments qualifies.
func ParsePageURL(raw string) (RepoIdentity, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return RepoIdentity{}, perr.ExtractionMissf("unparseable page url")
	}
	segs := splitPath(u.Path)
	if len(segs) < 2 {
		return RepoIdentity{}, perr.ExtractionMissf("page url does not name owner/repo")
	}
	return RepoIdentity{Host: u.Hostname(), Owner: segs[0], Repo: segs[1]}, nil
}

// ParseBlobURL resolves a file-view URL (/owner/repo/blob/branch/path...) and
// its #L fragment into a permalink selection with no content attached yet.
// Returns an extraction miss when the URL is not a blob view.
func ParseBlobURL(raw string) (PermalinkSelection, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return PermalinkSelection{}, perr.ExtractionMissf("unparseable page url")
	}
	segs := splitPath(u.Path)
	if len(segs) < 5 || segs[2] != "blob" {
		return PermalinkSelection{}, perr.ExtractionMissf("not a file view url")
	}
	start, end := ParseLineFragment(u.Fragment)
	return PermalinkSelection{
		Identity:  RepoIdentity{Host: u.Hostname(), Owner: segs[0], Repo: segs[1]},
		Branch:    segs[3],
		FilePath:  strings.Join(segs[4:], "/"),
		StartLine: start,
		EndLine:   end,
	}, nil
}

// ParseIssueURL resolves an issue or pull request URL
func ParseIssueURL(raw string) (IssueRef, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return IssueRef{}, perr.ExtractionMissf("unparseable page url")
	}
	segs := splitPath(u.Path)
	if len(segs) < 4 {
		return IssueRef{}, perr.ExtractionMissf("not an issue url")
	}
	section := segs[2]
	if section != "issues" && section != "pull" {
		return IssueRef{}, perr.ExtractionMissf("not an issue url")
	}
	n, err := strconv.Atoi(segs[3])
	if err != nil || n <= 0 {
		return IssueRef{}, perr.ExtractionMissf("bad issue number")
	}
	return IssueRef{
		Identity: RepoIdentity{Host: u.Hostname(), Owner: segs[0], Repo: segs[1]},
		Number:   n,
		IsPull:   section == "pull",
	}, nil
}

// ParseLineFragment decodes "#L10" or "#L10-L25" style fragments.
// An end line without a start line is not representable: both come back 0.
func ParseLineFragment(fragment string) (start, end int) {
	f := strings.TrimPrefix(fragment, "#")
	if !strings.HasPrefix(f, "L") {
		return 0, 0
	}
	f = f[1:]
	dash := strings.IndexByte(f, '-')
	if dash < 0 {
		return parseLineNum(f), 0
	}
	start = parseLineNum(f[:dash])
	if start == 0 {
		return 0, 0
	}
	end = parseLineNum(strings.TrimPrefix(f[dash+1:], "L"))
	if end != 0 && end < start {
		// reversed ranges collapse to the start line
		end = 0
	}
	return start, end
}

// SliceLines returns the exact substring of content covered by the line
// range; a start without an end yields that single line. Lines are 1-based.
func SliceLines(content string, start, end int) string {
	if start <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	if start > len(lines) {
		return ""
	}
	if end <= 0 || end == start {
		return lines[start-1]
	}
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start-1:end], "\n")
}

// FileName returns the last path segment
func FileName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Extension returns the filename extension without the dot, "txt" when absent
func Extension(path string) string {
	name := FileName(path)
	if i := strings.LastIndexByte(name, '.'); i >= 0 && i+1 < len(name) {
		return strings.ToLower(name[i+1:])
	}
	return "txt"
}

func parseLineNum(s string) int {
	// the line number ends at the first non-digit; the host pads fragments
	// with column markers like L10C5
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func splitPath(p string) []string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
