package events

// Event kinds this agent produces. The numeric taxonomy is fixed for wire
// compatibility with the wider network; never renumber.
const (
	// KindRepoAnnouncement is a repository announcement (NIP-34)
	KindRepoAnnouncement = 30617

	// KindCodeReference is a permalinked code reference (NIP-34)
	KindCodeReference = 1623

	// KindCodeSnippet is a standalone code snippet (NIP-C0)
	KindCodeSnippet = 1337

	// KindIssue is an issue thread root (NIP-34)
	KindIssue = 1621

	// KindIssueComment is a reply within an issue thread (NIP-34)
	KindIssueComment = 1622
)
