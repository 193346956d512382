package cli

import (
	"github.com/spf13/cobra"
)

const helpTemplate = `river-raid - instrumental learning experiment engine

USAGE
  river-raid run [flags]
  river-raid plan --themes <a,b,...> --out <path> [flags]
  river-raid serve [flags]
  river-raid check <artifact.json>
  river-raid version

COMMANDS
  run       Play a session with a simulated subject and export the artifact
  plan      Generate a randomized block list
  serve     Run the log ingest server
  check     Validate a session artifact and print its block table
  version   Show version, commit, build date

RUN FLAGS
  Session Documents:
    -s, --subject <id>                 Subject identifier (default: unknown)
    -e, --experiment <name|path>       Block list under --config-dir (default: default_experiment)
    --params <name|path>               Parameter document (default: default_params)
    --config-dir <dir>                 Directory of session documents (default: configs)
    -o, --output-dir <dir>             Directory for session artifacts (default: data)
    --seed <int>                       Random seed, 0 seeds from the clock (default: 0)

  Log Sinks:
    --log-file <path>                  Append records as JSON lines
    --log-ws-url <url>                 Ship records to a log server (ws://host:port/ws)
    --log-db <path>                    Store records in a SQLite database

  Simulated Subject:
    --policy <oracle|random|learning>  Subject policy (default: learning)
    --max-ticks <int>                  Frame budget, 0 for no limit (default: 2000000)

PLAN FLAGS
    --themes <a,b,...>                 Sprite themes cycled over themed blocks (required)
    -o, --out <path>                   Output block list (required)
    --seed <int>                       Random seed (default: 0)
    --runs <int>                       Passes over every task (default: 2)
    --trials-per-cue <int>             Trials per cue, experimental blocks (default: 10)
    --practice-trials-per-cue <int>    Trials per cue, practice blocks (default: 3)

SERVE FLAGS
    --addr <host:port>                 Listen address (default: 127.0.0.1:8090)
    --log-db <path>                    SQLite database (default: river-raid.db)

COMMON FLAGS
    --config <path>                    Path to additional config file
    -v, --verbose                      Show per-trial debug output
    -h, --help                         Show this help text

ENVIRONMENT
  RIVER_RAID_<KEY> overrides config files; flags override the environment.
  Keys: SUBJECT_ID EXPERIMENT PARAMS_NAME CONFIG_DIR OUTPUT_DIR SEED LOG_FILE
        LOG_WS_URL LOG_DB SUBJECT_POLICY MAX_TICKS VERBOSE

EXIT CODES
  0   Success              Session completed and exported
  1   Error                Invalid arguments, I/O failure
  2   ConfigInvalid        Block list or parameters rejected
  3   Incomplete           Frame budget ran out before the last block
  4   Inconsistent         Session artifact failed validation
  130 Interrupted          SIGINT or SIGTERM received

EXAMPLES
  # Generate a plan and play it with an oracle subject
  river-raid plan --themes animals,vehicles --seed 7 -o configs/pilot.json
  river-raid run -s s01 -e pilot --policy oracle --seed 7

  # Collect records centrally
  river-raid serve --log-db logs.db
  river-raid run -s s02 --log-ws-url ws://127.0.0.1:8090/ws
`

// SetCustomHelp configures the cobra command to use our custom help template.
// Subcommands inherit it.
func SetCustomHelp(cmd *cobra.Command) {
	cmd.SetHelpTemplate(helpTemplate)
}
