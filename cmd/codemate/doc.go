// Codemate is a pull request review agent.
//
// It receives GitHub, GitLab and Bitbucket webhooks, runs lint, security and
// AI analyzers over the changed files, and posts inline comments and a
// scored summary back to the pull request.
//
// Usage:
//
//	codemate serve                       # run the webhook server on :8000
//	codemate pr --repo owner/name --pr 42 # review one pull request
//	codemate pr --pr 42 --dry-run        # print findings without posting
//	codemate local ./service             # review files in a directory
//	codemate local . --diff              # review uncommitted changes
//	codemate config init                 # write a default config file
package main
