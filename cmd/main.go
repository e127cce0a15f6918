package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/dargueta/fatcat"
	"github.com/dargueta/fatcat/errors"
	"github.com/dargueta/fatcat/file_systems/fat12"
	"github.com/dargueta/fatcat/utilities/dump"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// defaultFileName is the file extracted by `cat` when no name is given.
const defaultFileName = "TEST    TXT"

const (
	exitOK              = 0
	exitOther           = 1
	exitNotFound        = 2
	exitTruncatedImage  = 3
	exitReadError       = 4
	exitCorruptChain    = 5
	exitInvalidArgument = 6
)

var exitCodesByKind = map[errors.Kind]int{
	errors.KindOK:              exitOK,
	errors.KindNotFound:        exitNotFound,
	errors.KindTruncatedImage:  exitTruncatedImage,
	errors.KindRead:            exitReadError,
	errors.KindCorruptChain:    exitCorruptChain,
	errors.KindInvalidGeometry: exitInvalidArgument,
	errors.KindInvalidArgument: exitInvalidArgument,
}

// usageError is returned when the command line itself is wrong, as opposed to
// the image.
type usageError struct {
	message string
}

func (e usageError) Error() string {
	return e.message
}

func exitCodeFor(err error) int {
	var usageErr usageError
	if stderrors.As(err, &usageErr) {
		return exitOther
	}

	code, ok := exitCodesByKind[errors.KindOf(err)]
	if !ok {
		return exitOther
	}
	return code
}

type application struct {
	fsys   afero.Fs
	stdout io.Writer
	stderr io.Writer
	logger *zap.SugaredLogger
}

func newLogger(output io.Writer, verbose bool) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(output),
		level,
	)
	return zap.New(core).Sugar()
}

func newApp(fsys afero.Fs, stdout, stderr io.Writer) (*cli.App, *application) {
	app := &application{
		fsys:   fsys,
		stdout: stdout,
		stderr: stderr,
		logger: zap.NewNop().Sugar(),
	}

	cliApp := &cli.App{
		Name:      "fatcat",
		Usage:     "Read files out of FAT12 floppy disk images",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log debugging information to stderr",
				EnvVars: []string{"FATCAT_VERBOSE"},
			},
		},
		Before: func(context *cli.Context) error {
			app.logger = newLogger(stderr, context.Bool("verbose"))
			return nil
		},
		// Exit codes are decided by run(), never by the library.
		ExitErrHandler: func(context *cli.Context, err error) {},
		Commands: []*cli.Command{
			{
				Name:      "cat",
				Usage:     "Write the contents of a file in the root directory to stdout",
				ArgsUsage: "IMAGE",
				Action:    app.catFile,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Name of the file, as stored (\"TEST    TXT\") or dotted (\"test.txt\")",
						Value:   defaultFileName,
						EnvVars: []string{"FATCAT_NAME"},
					},
					&cli.BoolFlag{
						Name:  "hex",
						Usage: "Write a hex dump instead of text",
					},
				},
			},
			{
				Name:      "ls",
				Usage:     "List the root directory",
				ArgsUsage: "IMAGE",
				Action:    app.listDirectory,
			},
			{
				Name:      "info",
				Usage:     "Show the boot sector and cluster usage",
				ArgsUsage: "IMAGE",
				Action:    app.showInfo,
			},
		},
	}
	return cliApp, app
}

func run(args []string, fsys afero.Fs, stdout, stderr io.Writer) int {
	cliApp, app := newApp(fsys, stdout, stderr)

	err := cliApp.Run(args)
	defer app.logger.Sync()

	if err != nil {
		app.logger.Errorf("%s", err.Error())
		return exitCodeFor(err)
	}
	return exitOK
}

func main() {
	os.Exit(run(os.Args, afero.NewOsFs(), os.Stdout, os.Stderr))
}

func imagePathArgument(context *cli.Context) (string, error) {
	if context.Args().Len() != 1 {
		return "", usageError{
			message: fmt.Sprintf(
				"%s: expected exactly one image path, got %d arguments",
				context.Command.Name,
				context.Args().Len()),
		}
	}
	return context.Args().First(), nil
}

// openImage opens the image named on the command line. The caller must close
// the returned file.
func (app *application) openImage(context *cli.Context) (afero.File, error) {
	path, err := imagePathArgument(context)
	if err != nil {
		return nil, err
	}

	app.logger.Debugw("Opening image", "path", path)
	imageFile, err := app.fsys.Open(path)
	if err != nil {
		return nil, errors.ErrRead.Wrap(err).WithMessage(
			fmt.Sprintf("failed to open image %q", path))
	}
	return imageFile, nil
}

func (app *application) catFile(context *cli.Context) error {
	path, err := imagePathArgument(context)
	if err != nil {
		return err
	}

	name := context.String("name")
	app.logger.Debugw("Extracting file", "path", path, "name", name)

	contents, err := fatcat.ExtractFile(app.fsys, path, name)
	if err != nil {
		return err
	}
	app.logger.Debugw("Extracted file", "name", name, "size", len(contents))

	if context.Bool("hex") {
		return dump.Hex(app.stdout, contents)
	}
	return dump.Text(app.stdout, contents)
}

func (app *application) listDirectory(context *cli.Context) error {
	imageFile, err := app.openImage(context)
	if err != nil {
		return err
	}
	defer imageFile.Close()

	entries, err := fatcat.List(imageFile)
	if err != nil {
		return err
	}
	app.logger.Debugw("Read root directory", "liveEntries", len(entries))

	for _, entry := range entries {
		size := fmt.Sprintf("%d", entry.FileSize)
		if entry.IsDirectory() {
			size = "<DIR>"
		}

		modified := "-"
		timestamp := entry.LastModified()
		if !timestamp.IsZero() {
			modified = timestamp.Format("2006-01-02 15:04:05")
		}

		_, err = fmt.Fprintf(
			app.stdout,
			"%-12s %10s %5d  %s  %s\n",
			entry.Name.String(),
			size,
			entry.FirstCluster(),
			modified,
			attributeString(&entry))
		if err != nil {
			return err
		}
	}
	return nil
}

func attributeString(entry *fat12.DirectoryEntry) string {
	flags := []byte("-----")
	letters := []struct {
		flag   uint8
		letter byte
	}{
		{fat12.AttrReadOnly, 'R'},
		{fat12.AttrHidden, 'H'},
		{fat12.AttrSystem, 'S'},
		{fat12.AttrDirectory, 'D'},
		{fat12.AttrArchived, 'A'},
	}

	for i, l := range letters {
		if entry.AttributeFlags&l.flag != 0 {
			flags[i] = l.letter
		}
	}
	return string(flags)
}

func (app *application) showInfo(context *cli.Context) error {
	imageFile, err := app.openImage(context)
	if err != nil {
		return err
	}
	defer imageFile.Close()

	info, err := fatcat.Inspect(imageFile)
	if err != nil {
		return err
	}

	geo := &info.Geometry
	app.logger.Debugw(
		"Decoded boot sector",
		"bytesPerSector", geo.BytesPerSector,
		"sectorsPerCluster", geo.SectorsPerCluster,
		"reservedSectors", geo.ReservedSectors,
		"numFATs", geo.NumFATs,
		"rootEntries", geo.RootEntryCount,
		"sectorsPerFAT", geo.SectorsPerFAT,
	)

	format := "unknown"
	if info.KnownFormat {
		format = fmt.Sprintf("%s (%s)", info.Format.Slug, info.Format.Name)
	}

	firstFree := "none"
	if info.FirstFreeCluster != 0 {
		firstFree = fmt.Sprintf("%d", info.FirstFreeCluster)
	}

	lines := []struct {
		label string
		value interface{}
	}{
		{"Format", format},
		{"OEM name", geo.OEMName()},
		{"Volume label", geo.VolumeLabel()},
		{"Serial number", fmt.Sprintf("%04X-%04X", geo.SerialNumberValue()>>16, geo.SerialNumberValue()&0xFFFF)},
		{"Media descriptor", fmt.Sprintf("0x%02X", geo.Media)},
		{"Bytes per sector", geo.BytesPerSector},
		{"Sectors per cluster", geo.SectorsPerCluster},
		{"Total sectors", geo.TotalSectors()},
		{"Reserved sectors", geo.ReservedSectors},
		{"FAT copies", geo.NumFATs},
		{"Sectors per FAT", geo.SectorsPerFAT},
		{"Root directory entries", geo.RootEntryCount},
		{"Root directory start", geo.RootDirStart()},
		{"Data region start", geo.DataRegionStart()},
		{"Total clusters", info.TotalClusters},
		{"Used clusters", info.UsedClusters},
		{"Free clusters", info.FreeClusters},
		{"Bad clusters", info.BadClusters},
		{"First free cluster", firstFree},
		{"Largest free run", info.LargestFreeRun},
	}

	if !geo.HasExtendedBootSignature() {
		lines[2].value = "(none)"
		lines[3].value = "(none)"
	}

	for _, line := range lines {
		_, err = fmt.Fprintf(app.stdout, "%-24s %v\n", line.label+":", line.value)
		if err != nil {
			return err
		}
	}
	return nil
}
