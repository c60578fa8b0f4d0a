package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapsite/internal/cli/output"
	"github.com/leapstack-labs/leapsite/internal/config"
	"github.com/leapstack-labs/leapsite/internal/source"
	"github.com/leapstack-labs/leapsite/internal/template"
	"github.com/leapstack-labs/leapsite/pkg/core"
	"github.com/spf13/cobra"
)

const playgroundPrompt = "leapsite> "

// PlaygroundOptions holds options for the playground command.
type PlaygroundOptions struct {
	Sources []string
	Listing bool
	Defines []string
}

// NewPlaygroundCommand creates the playground command.
func NewPlaygroundCommand() *cobra.Command {
	opts := &PlaygroundOptions{}
	cmd := &cobra.Command{
		Use:   "playground [SOURCE...]",
		Short: "Interactively render template snippets",
		Long: `Start a prompt where every line is parsed as a template and rendered
right away against the given sources and global variables.

Lines starting with a dot are commands; type .help to list them. When
standard input is not a terminal, lines are read from it without a prompt.`,
		Example: `  leapsite playground -D SITE_TITLE=Blog content/hello.md
  echo '{% block entry %}{{ TITLE }}{% endblock %}' | leapsite playground content/hello.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Sources = args
			return runPlayground(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Listing, "listing", "l", false, "Render in listing mode")
	cmd.Flags().StringArrayVarP(&opts.Defines, "define", "D", nil, "Global variable KEY=VALUE (repeatable)")
	return cmd
}

func runPlayground(cmd *cobra.Command, opts *PlaygroundOptions) error {
	ctx := cmd.Context()

	globals, err := parseDefines(opts.Defines)
	if err != nil {
		return err
	}
	records, err := loadRecords(source.NewParser(), opts.Sources)
	if err != nil {
		return err
	}

	p := &playground{
		globals:  globals,
		records:  records,
		listing:  opts.Listing,
		renderer: template.NewRenderer(config.GetLogger(ctx)),
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
	}

	in := cmd.InOrStdin()
	if !output.IsTTY(in) {
		return p.runLines(in)
	}

	historyFile := filepath.Join(filepath.Dir(config.GetConfig(ctx).StatePath), "playground_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          playgroundPrompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize prompt: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(p.out, "leapsite template playground. Type .help for commands, .quit to exit")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if p.eval(line) {
			return nil
		}
	}
}

// playground holds the state of an interactive session.
type playground struct {
	globals  *core.Record
	records  []*core.Record
	listing  bool
	renderer *template.Renderer
	out      io.Writer
	errOut   io.Writer
}

// runLines evaluates every line of r until EOF or .quit.
func (p *playground) runLines(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if p.eval(scanner.Text()) {
			return nil
		}
	}
	return scanner.Err()
}

// eval handles one input line and reports whether the session should end.
func (p *playground) eval(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, ".") {
		return p.command(trimmed)
	}

	tmpl, err := template.Parse(line, "<playground>")
	if err != nil {
		output.PrintError(p.errOut, err)
		return false
	}
	_, _ = fmt.Fprintln(p.out, p.renderer.Render(tmpl, &template.Context{
		Global:  p.globals,
		Records: p.records,
		Listing: p.listing,
	}))
	return false
}

func (p *playground) command(line string) bool {
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case ".quit", ".exit":
		return true

	case ".help":
		_, _ = fmt.Fprint(p.out, `Commands:
  .set KEY=VALUE   set a global variable
  .vars            show global variables
  .listing on|off  switch between listing and entry mode
  .quit            leave the playground
`)

	case ".set":
		defs, err := parseDefines([]string{rest})
		if err != nil {
			_, _ = fmt.Fprintln(p.errOut, err)
			return false
		}
		for _, key := range defs.Keys() {
			value, _ := defs.Get(key)
			p.globals.Set(key, value)
		}

	case ".vars":
		for _, key := range p.globals.Keys() {
			value, _ := p.globals.Get(key)
			_, _ = fmt.Fprintf(p.out, "%s=%s\n", key, value)
		}

	case ".listing":
		switch rest {
		case "on":
			p.listing = true
		case "off":
			p.listing = false
		default:
			_, _ = fmt.Fprintln(p.errOut, "usage: .listing on|off")
		}

	default:
		_, _ = fmt.Fprintf(p.errOut, "unknown command %s (try .help)\n", name)
	}
	return false
}
