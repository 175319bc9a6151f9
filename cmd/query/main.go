// Command query is the Query server binary: a single executable that
// serves the SQL query API, the user/token/function management endpoints,
// and dispatched user functions out of an embedded SQLite catalog.
package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/queryrun/query/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
