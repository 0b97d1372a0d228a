/*
 * This file is part of the USGS Terrain Builder distribution (https://github.com/ecopia-map/usgs_terrain).
 * Copyright (c) 2019 Massimo Federico Bonfigli - m.federico.bonfigli@gmail.com
 *
 * This program is free software; you can redistribute it and/or modify it
 * under the terms of the GNU Lesser General Public License Version 3 as
 * published by the Free Software Foundation;
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
 * Lesser General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public License
 * along with this program. If not, see <http://www.gnu.org/licenses/>.
 *
 * This software also uses third party components. You can find information
 * on their credits and licensing in the file LICENSE-3RD-PARTIES.md that
 * you should have received togheter with the source code.
 */

package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ecopia-map/usgs_terrain/internal/config"
	"github.com/ecopia-map/usgs_terrain/internal/converters"
	"github.com/ecopia-map/usgs_terrain/internal/converters/elevation/offset_elevation_corrector"
	"github.com/ecopia-map/usgs_terrain/internal/footprints"
	"github.com/ecopia-map/usgs_terrain/internal/geometry"
	"github.com/ecopia-map/usgs_terrain/internal/mapservice"
	"github.com/ecopia-map/usgs_terrain/internal/scene"
	"github.com/ecopia-map/usgs_terrain/internal/terrain"
	"github.com/ecopia-map/usgs_terrain/pkg"
	"github.com/ecopia-map/usgs_terrain/pkg/algorithm_manager"
	"github.com/ecopia-map/usgs_terrain/pkg/algorithm_manager/std_algorithm_manager"
	"github.com/ecopia-map/usgs_terrain/tools"
	"github.com/golang/glog"
)

const VERSION = "0.3.0"

const logo = `
 _   _ ___  __ _ ___  | |_ ___ _ __ _ __ __ _(_)_ __
| | | / __|/ _  / __| | __/ _ \ '__| '__/ _  | | '_ \
| |_| \__ \ (_| \__ \ | ||  __/ |  | | | (_| | | | | |
 \__,_|___/\__, |___/  \__\___|_|  |_|  \__,_|_|_| |_|
           |___/  USGS terrain assets for simulation worlds
                  Copyright YYYY
`

const commands = "[bbox|fetch|footprints|world|build]"

func main() {
	flagsGlobal := tools.ParseFlagsGlobal()
	defer glog.Flush()

	if *flagsGlobal.Help {
		showHelp(flag.CommandLine)
		return
	}
	if *flagsGlobal.Version {
		printVersion()
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		glog.Fatal("Please specify a subcommand " + commands + ".")
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case tools.CommandBbox:
		mainCommandBbox(args)
	case tools.CommandFetch:
		mainCommandFetch(args)
	case tools.CommandFootprints:
		mainCommandFootprints(args)
	case tools.CommandWorld:
		mainCommandWorld(args)
	case tools.CommandBuild:
		mainCommandBuild(args)
	default:
		glog.Fatalf("Unrecognized command [%q]. Command must be one of %s", cmd, commands)
	}
}

// set logging and timestamp logging, returns false when only help was requested
func setupOutput(flags tools.OutputFlags, flagCommand *flag.FlagSet) bool {
	if *flags.Help {
		showHelp(flagCommand)
		return false
	}
	if *flags.Silent {
		tools.DisableLogger()
	} else {
		tools.EnableLogger()
	}
	if *flags.LogTimestamp {
		tools.EnableLoggerTimestamp()
	} else {
		tools.DisableLoggerTimestamp()
	}
	return true
}

func newAlgorithmManagerOrFail(opts *terrain.TerrainOptions) algorithm_manager.AlgorithmManager {
	manager, err := std_algorithm_manager.NewAlgorithmManager(opts)
	if err != nil {
		glog.Fatal("Error loading the EPSG database: ", err)
	}
	return manager
}

func mainCommandBbox(args []string) {
	flags, flagCommand := tools.ParseFlagsForCommandBbox(args)
	if !setupOutput(flags.OutputFlags, flagCommand) {
		return
	}

	manager := newAlgorithmManagerOrFail(&terrain.TerrainOptions{})
	converter := manager.GetCoordinateConverterAlgorithm()
	defer converter.Cleanup()

	bbox, err := converters.ComputeWebMercatorBoundingBox(
		converter,
		geometry.Coordinate{X: *flags.X, Y: *flags.Y},
		*flags.CenterSrid,
		*flags.Size,
		*flags.Srid,
	)
	if err != nil {
		glog.Fatal("Error computing the bounding box: ", err)
	}

	fmt.Println(tools.FmtJSONString(bbox))
}

func mainCommandFetch(args []string) {
	flags, flagCommand := tools.ParseFlagsForCommandFetch(args)
	if !setupOutput(flags.OutputFlags, flagCommand) {
		return
	}

	params, err := url.ParseQuery(*flags.Params)
	if err != nil {
		glog.Fatal("Error parsing request parameters: ", err)
	}
	if *flags.Url == "" {
		glog.Fatal("Error parsing input parameters: url is required")
	}

	req := mapservice.MapRequest{BaseURL: *flags.Url, Params: params}
	fetcher := mapservice.NewMapFetcher(time.Duration(*flags.Timeout) * time.Second)

	if *flags.DryRun {
		fmt.Println(fetcher.RequestURL(req))
		return
	}
	if *flags.Output == "" {
		glog.Fatal("Error parsing input parameters: output is required")
	}

	if status := fetcher.GetMap(req, *flags.Output); status != mapservice.StatusOK {
		glog.Flush()
		os.Exit(1)
	}
	tools.LogOutput("Fetch Completed")
}

func mainCommandFootprints(args []string) {
	flags, flagCommand := tools.ParseFlagsForCommandFootprints(args)
	if !setupOutput(flags.OutputFlags, flagCommand) {
		return
	}

	cfg, err := config.LoadFootprintConfig(tools.ResolvePath(*flags.Config))
	if err != nil {
		glog.Fatal(err)
	}

	manager := newAlgorithmManagerOrFail(&terrain.TerrainOptions{})
	converter := manager.GetCoordinateConverterAlgorithm()
	defer converter.Cleanup()

	if err := footprints.BuildFootprints(cfg, converter); err != nil {
		glog.Fatal("Error while rasterizing footprints: ", err)
	}
	tools.LogOutput("Footprints written to " + cfg.Image)
}

func mainCommandWorld(args []string) {
	flags, flagCommand := tools.ParseFlagsForCommandWorld(args)
	if !setupOutput(flags.OutputFlags, flagCommand) {
		return
	}

	manager := newAlgorithmManagerOrFail(&terrain.TerrainOptions{})
	converter := manager.GetCoordinateConverterAlgorithm()
	defer converter.Cleanup()

	world := scene.NewWorldFileUpdater(*flags.Output, *flags.WorldFile, converter, manager.GetRasterOpener())
	world.HeightmapSrid = *flags.Srid

	var err error
	switch {
	case flags.ElevationOffsetSet:
		err = world.SetElevation(offset_elevation_corrector.NewOffsetElevationCorrector(*flags.ZOffset))
	case *flags.Heightmap != "":
		err = world.SetElevationOffset(*flags.Heightmap)
	}
	if err != nil {
		glog.Fatal("Error setting the elevation offset: ", err)
	}

	if *flags.TextureScale != 0 || *flags.Heightmap != "" {
		if err := world.SetTextureScale(*flags.TextureScale, *flags.Heightmap); err != nil {
			glog.Fatal("Error setting the texture scale: ", err)
		}
	}

	if *flags.Texture != "" {
		if err := world.SetTextureReference(*flags.Texture); err != nil {
			glog.Fatal("Error setting the texture reference: ", err)
		}
	}

	tools.LogOutput("World file updated: " + world.Path())
}

func mainCommandBuild(args []string) {
	flags, flagCommand := tools.ParseFlagsForCommandBuild(args)
	if *flags.Version {
		printVersion()
		return
	}
	if !setupOutput(flags.OutputFlags, flagCommand) {
		return
	}
	if !*flags.Silent {
		printLogo()
	}

	cfg, err := config.LoadBuildConfig(tools.ResolvePath(*flags.Config))
	if err != nil {
		glog.Fatal(err)
	}

	opts := optionsFromConfig(cfg)
	opts.DryRun = *flags.DryRun

	stages, unknown := terrain.ParseStages(*flags.Stages)
	if len(unknown) > 0 {
		glog.Fatalf("Error parsing input parameters: unknown stages %s", strings.Join(unknown, ","))
	}
	opts.Stages = stages

	if err := pkg.ValidateOptions(opts); err != nil {
		glog.Fatal("Error parsing input parameters: ", err)
	}
	glog.Infoln("build options", tools.FmtJSONString(opts))

	defer timeTrack(time.Now(), "build")
	manager := newAlgorithmManagerOrFail(opts)
	var builder pkg.ITerrainBuilder = pkg.NewTerrainBuilder(manager)
	if err := builder.RunBuilder(opts); err != nil {
		glog.Fatal("Error while building: ", err)
	}
	tools.LogOutput("Build Completed")
}

func optionsFromConfig(cfg *config.BuildConfig) *terrain.TerrainOptions {
	return &terrain.TerrainOptions{
		Center:          geometry.Coordinate{X: cfg.Center.X, Y: cfg.Center.Y},
		CenterSrid:      cfg.Center.Srid,
		Size:            cfg.Size,
		RequestSrid:     cfg.RequestSrid,
		HeightmapPx:     cfg.HeightmapPx,
		TexturePx:       cfg.TexturePx,
		TextureScale:    cfg.TextureScale,
		Output:          cfg.Output,
		WorldFile:       cfg.WorldFile,
		ResponseMode:    cfg.ResponseMode,
		ElevationOffset: cfg.ZOffset,
		ServiceOptions: &terrain.ServiceOptions{
			Elevation:  cfg.Services.Elevation,
			Imagery:    cfg.Services.Imagery,
			Footprints: cfg.Services.Footprints,
			Timeout:    cfg.Timeout,
		},
		FootprintsOptions: &terrain.FootprintsOptions{
			Srid:       cfg.Footprints.Srid,
			Resolution: cfg.Footprints.Resolution,
			Image:      cfg.Footprints.Image,
		},
	}
}

func timeTrack(start time.Time, name string) {
	elapsed := time.Since(start)
	tools.LogOutput(fmt.Sprintf("%s took %s", name, elapsed))
}

func printLogo() {
	fmt.Println(strings.ReplaceAll(logo, "YYYY", strconv.Itoa(time.Now().Year())))
}

func showHelp(flagSet *flag.FlagSet) {
	printLogo()
	fmt.Println("***")
	fmt.Println("usgs_terrain fetches USGS elevation and imagery rasters around a point, rasterizes building footprints and keeps a simulator world file in step with them")
	printVersion()
	fmt.Println("***")
	fmt.Println("")
	fmt.Println("Commands: " + commands)
	fmt.Println("Command line flags: ")
	flagSet.SetOutput(os.Stdout)
	flagSet.PrintDefaults()
}

func printVersion() {
	fmt.Println("v." + VERSION)
}
