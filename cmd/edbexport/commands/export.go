// Copyright 2024 edbtools, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package commands holds the tool's subcommand implementations.
package commands

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/edbtools/edbexport/cmd/edbexport/cli"
	"github.com/edbtools/edbexport/libraries/esecore/catalog"
	"github.com/edbtools/edbexport/libraries/esecore/dbsession"
	"github.com/edbtools/edbexport/libraries/esecore/decode"
	"github.com/edbtools/edbexport/libraries/esecore/esent"
	"github.com/edbtools/edbexport/libraries/esecore/propstore"
	"github.com/edbtools/edbexport/libraries/esecore/tblexport"
	"github.com/edbtools/edbexport/libraries/utils/argparser"
	"github.com/edbtools/edbexport/libraries/utils/filesys"
)

const (
	outParam          = "out"
	delimParam        = "delim"
	vocabParam        = "vocab"
	keepWorkcopyParam = "keep-workcopy"
	verboseParam      = "verbose"
)

// ExportCmd opens an .edb file and writes every table as delimited
// artifacts.
type ExportCmd struct{}

var _ cli.Command = ExportCmd{}

func (cmd ExportCmd) Name() string {
	return "export"
}

func (cmd ExportCmd) Description() string {
	return "Exports every table of an ESE database as delimited text files."
}

func (cmd ExportCmd) createArgParser() *argparser.ArgParser {
	ap := argparser.NewArgParserWithMaxArgs(cmd.Name(), 1)
	ap.SupportsString(outParam, "o", "directory", "Output directory for the export artifacts.")
	ap.SupportsString(delimParam, "", "char", "Field delimiter for records artifacts. Defaults to a comma.")
	ap.SupportsString(vocabParam, "", "file", "TOML file overriding the built-in column name vocabulary.")
	ap.SupportsFlag(keepWorkcopyParam, "", "Keep the working copy of the database instead of deleting it.")
	ap.SupportsFlag(verboseParam, "v", "Log at debug level.")

	return ap
}

func (cmd ExportCmd) printUsage(commandStr string, ap *argparser.ArgParser) {
	cli.Println("usage:", commandStr, "[options] <database.edb>")
	cli.Println()

	for _, opt := range ap.Supported {
		name := "--" + opt.Name
		if opt.ValDesc != "" {
			name += " <" + opt.ValDesc + ">"
		}

		cli.Printf("    %-24s %s\n", name, opt.Desc)
	}
}

func (cmd ExportCmd) Exec(ctx context.Context, commandStr string, args []string) int {
	ap := cmd.createArgParser()

	apr, err := ap.Parse(args)
	if err != nil {
		if err == argparser.ErrHelp {
			cmd.printUsage(commandStr, ap)
			return 0
		}

		cli.PrintErrln(color.RedString(err.Error()))
		return 1
	}

	if apr.NArg() != 1 {
		cmd.printUsage(commandStr, ap)
		return 1
	}

	lg := newLogger(apr.Contains(verboseParam))

	delim, ok := parseDelim(apr.GetValueOrDefault(delimParam, ","))
	if !ok {
		cli.PrintErrln(color.RedString("error: --delim must be a single character"))
		return 1
	}

	fs := filesys.LocalFS

	vocab, err := loadVocabulary(fs, apr)
	if err != nil {
		cli.PrintErrln(color.RedString(err.Error()))
		return 1
	}

	dbPath, err := fs.Abs(apr.Arg(0))
	if err != nil {
		cli.PrintErrln(color.RedString(err.Error()))
		return 1
	}

	outDir := apr.GetValueOrDefault(outParam, defaultOutDir(dbPath))

	start := time.Now()

	total, err := runExport(fs, dbPath, outDir, delim, vocab, apr.Contains(keepWorkcopyParam), lg)
	if err != nil {
		cli.PrintErrln(color.RedString(err.Error()))
		return 1
	}

	cli.Println(color.GreenString("Exported %s records to %s in %s",
		humanize.Comma(int64(total)), outDir, time.Since(start).Round(time.Millisecond)))

	return 0
}

func runExport(fs filesys.Filesys, dbPath, outDir string, delim rune, vocab decode.Vocabulary, keepWorkcopy bool, lg *logrus.Entry) (int, error) {
	api, err := esent.NewApi()
	if err != nil {
		return 0, err
	}

	workDir := filepath.Join(fs.TempDir(), "edbexport-work-"+uuid.New().String())

	wc, err := dbsession.CreateWorkingCopy(fs, dbPath, workDir, lg)
	if err != nil {
		return 0, err
	}

	if !keepWorkcopy {
		defer wc.Remove()
	}

	cfg, err := dbsession.ProbeConfig(fs, wc.Path, fs.TempDir())
	if err != nil {
		return 0, err
	}

	lg.WithFields(logrus.Fields{
		"pagesize": cfg.PageSize,
		"size":     humanize.Bytes(uint64(cfg.FileSize)),
	}).Info("database probed")

	mgr := dbsession.NewManager(api, cfg, dbsession.NewEsentutlRunner(fs), lg)
	defer mgr.Close()

	db, err := mgr.Open()
	if err != nil {
		return 0, err
	}

	sink, err := tblexport.NewDirSink(fs, outDir, delim)
	if err != nil {
		return 0, err
	}

	dec := decode.NewDecoder(vocab)
	exporter := tblexport.NewExporter(dec, sink, lg)

	return exportTables(db, dec, exporter, sink, lg)
}

// exportTables walks every table of the attached database. A table that
// fails to export is skipped with a warning; only enumeration of the catalog
// itself is fatal.
func exportTables(db esent.Database, dec *decode.Decoder, exporter *tblexport.Exporter, sink tblexport.Sink, lg *logrus.Entry) (int, error) {
	names, err := catalog.ListTables(db)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, name := range names {
		h, skipped := catalog.Open(db, name, lg)
		if skipped {
			continue
		}

		cli.Println(color.CyanString("Exporting %s (%s records)", name, humanize.Comma(int64(h.RowCount))))

		n, err := exportOne(h, dec, exporter, sink, lg)
		h.Close()

		if err != nil {
			lg.WithError(err).WithField("table", name).Warn("table export failed; table skipped")
			cli.PrintErrln(color.YellowString("Skipping %s: %s", name, err.Error()))
			continue
		}

		total += n
	}

	return total, nil
}

// exportOne routes the property store through the two-pass grouper and
// everything else through the plain table scan.
func exportOne(h *catalog.Handle, dec *decode.Decoder, exporter *tblexport.Exporter, sink tblexport.Sink, lg *logrus.Entry) (int, error) {
	if h.Name == propstore.TableName {
		g, err := propstore.Scan(h, lg)
		if err != nil {
			return 0, err
		}

		progress := func(store, disc string, records int) {
			cli.Println(color.CyanString("  %s/%s: %s records", store, disc, humanize.Comma(int64(records))))
		}

		return propstore.Export(h, g, dec, sink, progress, lg)
	}

	return exporter.ExportTable(h)
}

func newLogger(verbose bool) *logrus.Entry {
	lg := logrus.New()
	lg.SetOutput(cli.CliErr)

	if verbose {
		lg.SetLevel(logrus.DebugLevel)
	}

	return logrus.NewEntry(lg)
}

func parseDelim(s string) (rune, bool) {
	r := []rune(s)
	if len(r) != 1 {
		return 0, false
	}

	return r[0], true
}

func loadVocabulary(fs filesys.Filesys, apr *argparser.ArgParseResults) (decode.Vocabulary, error) {
	path, ok := apr.GetValue(vocabParam)
	if !ok {
		return decode.DefaultVocabulary(), nil
	}

	data, err := fs.ReadFile(path)
	if err != nil {
		return decode.Vocabulary{}, err
	}

	return decode.LoadVocabulary(data)
}

func defaultOutDir(dbPath string) string {
	base := filepath.Base(dbPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	return filepath.Join(filepath.Dir(dbPath), base+"_export")
}
