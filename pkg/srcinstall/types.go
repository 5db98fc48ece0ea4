package srcinstall

import (
	"github.com/bianoble/srcinstall/internal/build"
	"github.com/bianoble/srcinstall/internal/config"
	"github.com/bianoble/srcinstall/internal/engine"
	"github.com/bianoble/srcinstall/internal/installtree"
	"github.com/bianoble/srcinstall/internal/version"
)

// Type aliases re-export internal types as the public API.

type Config = config.Config
type InstallOptions = engine.InstallOptions
type InstallResult = engine.InstallResult
type Listing = engine.Listing
type Resolved = version.Resolved
type AliasPolicy = installtree.AliasPolicy
type AliasAction = installtree.AliasAction
type TestPolicy = build.TestPolicy
type StageError = build.StageError

// Latest selects the newest matching release.
const Latest = version.Latest
