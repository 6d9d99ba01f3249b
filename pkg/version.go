package pkg

import "fmt"

var (
	// These variables are here only to show current version. They are set in makefile during build process
	ShardRepoVersion         = "devel"
	GitRevision              = "devel"
	ShardRepoVersionRevision = fmt.Sprintf("%s-%s", ShardRepoVersion, GitRevision)
)
