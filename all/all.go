// Package all imports every upstream source implementation.
//
// Import it for its side effects to register all sources:
//
//	import (
//		"github.com/git-pkgs/switchboard"
//		_ "github.com/git-pkgs/switchboard/all"
//	)
//
//	names := switchboard.Names()
//	// ["fabric-api", "fabric-loader", "forge", "mcp", "mojmap", "neoforge", "parchment", "yarn"]
package all

import (
	_ "github.com/git-pkgs/switchboard/internal/fabricapi"
	_ "github.com/git-pkgs/switchboard/internal/fabricloader"
	_ "github.com/git-pkgs/switchboard/internal/forge"
	_ "github.com/git-pkgs/switchboard/internal/mcp"
	_ "github.com/git-pkgs/switchboard/internal/mojmap"
	_ "github.com/git-pkgs/switchboard/internal/neoforge"
	_ "github.com/git-pkgs/switchboard/internal/parchment"
	_ "github.com/git-pkgs/switchboard/internal/yarn"
)
