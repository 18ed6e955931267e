package texting

import (
	"io"

	"github.com/alecthomas/kong"
)

// ParseCmd parses args into the kong grammar cmd. Parser output is discarded and
// --help is not registered, so a bad input only ever yields an error.
func ParseCmd(cmd any, args []string) (*kong.Context, error) {
	parser, err := kong.New(cmd,
		kong.NoDefaultHelp(),
		kong.Writers(io.Discard, io.Discard),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		return nil, err
	}
	return parser.Parse(args)
}
