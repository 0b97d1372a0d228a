package tools

import (
	"flag"

	"github.com/golang/glog"
)

const (
	CommandBbox       = "bbox"
	CommandFetch      = "fetch"
	CommandFootprints = "footprints"
	CommandWorld      = "world"
	CommandBuild      = "build"
)

type FlagsGlobal struct {
	Help    *bool `json:"help"`
	Version *bool `json:"version"`
}

// Flags shared by every command
type OutputFlags struct {
	Silent       *bool `json:"silent"`
	LogTimestamp *bool `json:"timestamp"`
	Help         *bool `json:"help"`
}

type FlagsForCommandBbox struct {
	OutputFlags
	X          *float64 `json:"x"`
	Y          *float64 `json:"y"`
	CenterSrid *int     `json:"center_srid"`
	Size       *float64 `json:"size"`
	Srid       *int     `json:"srid"`
}

type FlagsForCommandFetch struct {
	OutputFlags
	Url     *string `json:"url"`
	Params  *string `json:"params"`
	Output  *string `json:"output"`
	Timeout *int    `json:"timeout"`
	DryRun  *bool   `json:"dry_run"`
}

type FlagsForCommandFootprints struct {
	OutputFlags
	Config *string `json:"config"`
}

type FlagsForCommandWorld struct {
	OutputFlags
	Output             *string  `json:"output"`
	WorldFile          *string  `json:"world_file"`
	Heightmap          *string  `json:"heightmap"`
	Texture            *string  `json:"texture"`
	TextureScale       *int     `json:"texture_scale"`
	Srid               *int     `json:"srid"`
	ZOffset            *float64 `json:"zoffset"`
	ElevationOffsetSet bool     `json:"-"`
}

type FlagsForCommandBuild struct {
	OutputFlags
	Config  *string `json:"config"`
	Stages  *string `json:"stages"`
	DryRun  *bool   `json:"dry_run"`
	Version *bool   `json:"version"`
}

func ParseFlagsGlobal() FlagsGlobal {
	help := defineBoolFlag("help", "h", false, "Displays this help.")
	// -v belongs to glog verbosity on the global flag set
	version := defineBoolFlag("version", "", false, "Displays the version of usgs_terrain.")

	flag.Parse()

	return FlagsGlobal{
		Help:    help,
		Version: version,
	}
}

func defineOutputFlags(flagCommand *flag.FlagSet) OutputFlags {
	return OutputFlags{
		Silent:       defineBoolFlagCommand(flagCommand, "silent", "s", false, "Use to suppress all the non-error messages."),
		LogTimestamp: defineBoolFlagCommand(flagCommand, "timestamp", "t", false, "Adds timestamp to log messages."),
		Help:         defineBoolFlagCommand(flagCommand, "help", "h", false, "Displays this help."),
	}
}

func ParseFlagsForCommandBbox(args []string) (FlagsForCommandBbox, *flag.FlagSet) {
	glog.V(1).Infoln(FmtJSONString(args))

	flagCommand := flag.NewFlagSet("command-bbox", flag.ExitOnError)

	x := defineFloat64FlagCommand(flagCommand, "x", "", 0, "X (longitude) of the center point.")
	y := defineFloat64FlagCommand(flagCommand, "y", "", 0, "Y (latitude) of the center point.")
	centerSrid := defineIntFlagCommand(flagCommand, "center-srid", "c", 4326, "EPSG srid code of the center point.")
	size := defineFloat64FlagCommand(flagCommand, "size", "l", 1000, "Edge length of the box in Web Mercator meters.")
	srid := defineIntFlagCommand(flagCommand, "srid", "e", 4326, "EPSG srid code the box is expressed in.")
	outputFlags := defineOutputFlags(flagCommand)

	_ = flagCommand.Parse(args)

	return FlagsForCommandBbox{
		OutputFlags: outputFlags,
		X:           x,
		Y:           y,
		CenterSrid:  centerSrid,
		Size:        size,
		Srid:        srid,
	}, flagCommand
}

func ParseFlagsForCommandFetch(args []string) (FlagsForCommandFetch, *flag.FlagSet) {
	glog.V(1).Infoln(FmtJSONString(args))

	flagCommand := flag.NewFlagSet("command-fetch", flag.ExitOnError)

	url := defineStringFlagCommand(flagCommand, "url", "u", "", "Base URL of the map service endpoint.")
	params := defineStringFlagCommand(flagCommand, "params", "p", "", "URL encoded request parameters, e.g. 'format=tiff&f=image&bbox=...'.")
	output := defineStringFlagCommand(flagCommand, "output", "o", "", "Output file name; the extension is derived from the format parameter.")
	timeout := defineIntFlagCommand(flagCommand, "timeout", "", 120, "Request timeout in seconds.")
	dryRun := defineBoolFlagCommand(flagCommand, "dry-run", "n", false, "Prints the request URL without fetching it.")
	outputFlags := defineOutputFlags(flagCommand)

	_ = flagCommand.Parse(args)

	return FlagsForCommandFetch{
		OutputFlags: outputFlags,
		Url:         url,
		Params:      params,
		Output:      output,
		Timeout:     timeout,
		DryRun:      dryRun,
	}, flagCommand
}

func ParseFlagsForCommandFootprints(args []string) (FlagsForCommandFootprints, *flag.FlagSet) {
	glog.V(1).Infoln(FmtJSONString(args))

	flagCommand := flag.NewFlagSet("command-footprints", flag.ExitOnError)

	config := defineStringFlagCommand(flagCommand, "config", "c", "footprints.yaml", "Footprint config document (map_json, origin, size, resolution, image).")
	outputFlags := defineOutputFlags(flagCommand)

	_ = flagCommand.Parse(args)

	return FlagsForCommandFootprints{
		OutputFlags: outputFlags,
		Config:      config,
	}, flagCommand
}

func ParseFlagsForCommandWorld(args []string) (FlagsForCommandWorld, *flag.FlagSet) {
	glog.V(1).Infoln(FmtJSONString(args))

	flagCommand := flag.NewFlagSet("command-world", flag.ExitOnError)

	output := defineStringFlagCommand(flagCommand, "output", "o", "worlds", "Folder holding the world file.")
	worldFile := defineStringFlagCommand(flagCommand, "world-file", "w", "usgs_simulation_environment.world", "World file name.")
	heightmap := defineStringFlagCommand(flagCommand, "heightmap", "m", "", "Heightmap raster used for the elevation offset and the texture scale.")
	texture := defineStringFlagCommand(flagCommand, "texture", "x", "", "Texture file referenced by the world.")
	textureScale := defineIntFlagCommand(flagCommand, "texture-scale", "", 0, "Texture tile size; 0 derives it from the heightmap.")
	srid := defineIntFlagCommand(flagCommand, "srid", "e", 4326, "EPSG srid code of the heightmap geotransform.")
	zOffset := defineFloat64FlagCommand(flagCommand, "zoffset", "z", 0, "Fixed elevation offset in meters, replaces the heightmap center offset.")
	outputFlags := defineOutputFlags(flagCommand)

	_ = flagCommand.Parse(args)

	flags := FlagsForCommandWorld{
		OutputFlags:  outputFlags,
		Output:       output,
		WorldFile:    worldFile,
		Heightmap:    heightmap,
		Texture:      texture,
		TextureScale: textureScale,
		Srid:         srid,
		ZOffset:      zOffset,
	}
	flags.ElevationOffsetSet = isFlagSet(flagCommand, "zoffset", "z")

	return flags, flagCommand
}

func ParseFlagsForCommandBuild(args []string) (FlagsForCommandBuild, *flag.FlagSet) {
	glog.V(1).Infoln(FmtJSONString(args))

	flagCommand := flag.NewFlagSet("command-build", flag.ExitOnError)

	config := defineStringFlagCommand(flagCommand, "config", "c", "terrain.yaml", "Build config document.")
	stages := defineStringFlagCommand(flagCommand, "stages", "", "", "Comma separated stages to run among heightmap,texture,footprints,world. Default is all.")
	dryRun := defineBoolFlagCommand(flagCommand, "dry-run", "n", false, "Prints the request URLs without fetching anything.")
	version := defineBoolFlagCommand(flagCommand, "version", "v", false, "Displays the version of usgs_terrain.")
	outputFlags := defineOutputFlags(flagCommand)

	_ = flagCommand.Parse(args)

	return FlagsForCommandBuild{
		OutputFlags: outputFlags,
		Config:      config,
		Stages:      stages,
		DryRun:      dryRun,
		Version:     version,
	}, flagCommand
}

// isFlagSet reports whether any of names was given on the command line
func isFlagSet(flagCommand *flag.FlagSet, names ...string) bool {
	set := false
	flagCommand.Visit(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				set = true
			}
		}
	})
	return set
}

func defineBoolFlag(name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flag.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flag.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineStringFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue string, usage string) *string {
	var output string
	flagCommand.StringVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.StringVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineIntFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue int, usage string) *int {
	var output int
	flagCommand.IntVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.IntVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineFloat64FlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue float64, usage string) *float64 {
	var output float64
	flagCommand.Float64Var(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.Float64Var(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineBoolFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flagCommand.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}
