package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/reoring/goform"
	"github.com/reoring/goform/config"
	"github.com/reoring/goform/i18n"
	_ "github.com/reoring/goform/transport" // default HTTP transport
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}
	switch args[0] {
	case "validate":
		return validateCmd(args[1:], stdout, stderr)
	case "submit":
		return submitCmd(args[1:], stdout, stderr)
	case "serve":
		return serveCmd(args[1:], stdout, stderr)
	default:
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "goform CLI\n\nUsage:\n  goform validate -form form.yaml [-values values.json] [-json] [-v]\n  goform submit -form form.yaml [-values values.json] [-v]\n  goform serve -form form.yaml [-addr :8080] [-watch]\n\nExit status is 1 when the values are invalid or the submission fails.")
}

type commonFlags struct {
	form    string
	values  string
	verbose bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.form, "form", "", "form definition (YAML)")
	fs.StringVar(&c.values, "values", "", "values to apply, JSON or YAML by extension")
	fs.BoolVar(&c.verbose, "v", false, "enable verbose output")
}

// load reads the definition, installs its language and builds the form with
// the values file merged on top of the initial values. hook may adjust the
// props before the form is created.
func (c *commonFlags) load(ctx context.Context, logger zerolog.Logger, hook func(*goform.Props), opts ...goform.Option) (*config.Definition, *goform.Form, error) {
	def, err := config.Load(c.form)
	if err != nil {
		return nil, nil, err
	}
	i18n.SetLanguage(def.Language)
	props, err := def.Props()
	if err != nil {
		return nil, nil, err
	}
	if hook != nil {
		hook(&props)
	}
	f, err := goform.New(ctx, props, append([]goform.Option{goform.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	if c.values != "" {
		vals, err := readValues(c.values)
		if err != nil {
			return nil, nil, err
		}
		if err := f.SetFields(ctx, vals, false); err != nil {
			return nil, nil, err
		}
	}
	return def, f, nil
}

func readValues(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	out := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &out)
	default:
		err = json.Unmarshal(data, &out)
	}
	if err != nil {
		return nil, fmt.Errorf("parse values %s: %w", path, err)
	}
	return out, nil
}

// cliLogger writes console logs to stderr; verbose lowers the level to debug.
func cliLogger(stderr io.Writer, verbose bool) zerolog.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return config.NewLogger(config.LoggingConfig{Level: level, Format: "console"}, stderr)
}

func invalid(errs goform.FieldMap[string]) int {
	n := 0
	for _, msg := range errs.All() {
		if msg != "" {
			n++
		}
	}
	return n
}

func printErrors(w io.Writer, errs goform.FieldMap[string]) {
	for path, msg := range errs.All() {
		if msg != "" {
			fmt.Fprintf(w, "%s: %s\n", path, msg)
		}
	}
}

func validateCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c commonFlags
	var asJSON bool
	c.register(fs)
	fs.BoolVar(&asJSON, "json", false, "print the error map as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if c.form == "" {
		fs.Usage()
		return 2
	}

	ctx := context.Background()
	_, f, err := c.load(ctx, cliLogger(stderr, c.verbose), nil)
	if err != nil {
		fmt.Fprintf(stderr, "validate: %v\n", err)
		return 1
	}
	if c.verbose {
		spew.Fdump(stderr, f.Values())
	}
	errs, err := f.Validate(ctx, goform.ValidateOptions{TouchAll: true})
	if err != nil {
		fmt.Fprintf(stderr, "validate: %v\n", err)
		return 1
	}

	if asJSON {
		data, err := json.Marshal(errs)
		if err != nil {
			fmt.Fprintf(stderr, "validate: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, string(data))
	} else {
		printErrors(stdout, errs)
	}
	if n := invalid(errs); n > 0 {
		fmt.Fprintf(stderr, "%d invalid field(s)\n", n)
		return 1
	}
	if !asJSON {
		fmt.Fprintln(stdout, "ok")
	}
	return 0
}

func submitCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c commonFlags
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if c.form == "" {
		fs.Usage()
		return 2
	}

	ctx := context.Background()
	var transportErr *goform.TransportError
	var body []byte
	def, f, err := c.load(ctx, cliLogger(stderr, c.verbose), func(p *goform.Props) {
		if p.Submit == nil {
			return
		}
		p.Submit.OnError = func(err *goform.TransportError) { transportErr = err }
		p.Submit.OnResponse = func(resp *goform.Response) { body = resp.Body }
	})
	if err != nil {
		fmt.Fprintf(stderr, "submit: %v\n", err)
		return 1
	}
	if def.Submit == nil {
		fmt.Fprintln(stderr, "submit: form has no submit section")
		return 2
	}

	if err := f.HandleSubmit(ctx, goform.NewSubmitEvent(nil)); err != nil {
		fmt.Fprintf(stderr, "submit: %v\n", err)
		return 1
	}

	switch out := f.LastSubmit(); {
	case out.Blocked:
		errs := f.Errors()
		printErrors(stdout, errs)
		fmt.Fprintf(stderr, "%d invalid field(s)\n", invalid(errs))
		return 1
	case out.Status == goform.StatusSuccess:
		if c.verbose && len(body) > 0 {
			fmt.Fprintln(stderr, string(body))
		}
		fmt.Fprintln(stdout, "submitted")
		return 0
	case out.Status == goform.StatusError:
		if transportErr != nil {
			fmt.Fprintf(stderr, "submit: %v\n", transportErr)
		} else {
			fmt.Fprintln(stderr, "submit: submission failed")
		}
		return 1
	default:
		fmt.Fprintln(stderr, "submit: nothing was sent")
		return 1
	}
}
