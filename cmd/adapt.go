/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/notargets/adaptmesh/AdaptParameters"
	"github.com/notargets/adaptmesh/adapt"
	"github.com/notargets/adaptmesh/mesh"
	"github.com/notargets/adaptmesh/readfiles"
)

type AdaptModel struct {
	GridFile   string
	MetricFile string
	ParamFile  string
	OutFile    string
	Profile    bool
}

// AdaptCmd represents the adapt command
var AdaptCmd = &cobra.Command{
	Use:   "adapt",
	Short: "Adapt a triangle grid to a per-vertex metric field",
	Long: `
Reads an SU2 triangle grid and a per-vertex metric file, runs
coarsen/swap/refine/swap/smooth sweeps until the mesh statistics stabilise,
and writes the adapted grid.

adaptmesh adapt -g naca.su2 -m metric.dat -o adapted.su2`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		am := &AdaptModel{}
		if am.GridFile, err = cmd.Flags().GetString("gridFile"); err != nil {
			panic(err)
		}
		am.MetricFile, _ = cmd.Flags().GetString("metricFile")
		am.ParamFile, _ = cmd.Flags().GetString("inputParametersFile")
		am.OutFile, _ = cmd.Flags().GetString("outFile")
		am.Profile, _ = cmd.Flags().GetBool("cpuprofile")
		RunAdapt(am)
	},
}

func init() {
	rootCmd.AddCommand(AdaptCmd)
	AdaptCmd.Flags().StringP("gridFile", "g", "", "SU2 grid file to read")
	AdaptCmd.Flags().StringP("metricFile", "m", "", "per-vertex metric file (identity metric if omitted)")
	AdaptCmd.Flags().StringP("inputParametersFile", "I", "", "YAML file with adaptation parameters")
	AdaptCmd.Flags().StringP("outFile", "o", "adapted.su2", "output grid file")
	AdaptCmd.Flags().Bool("cpuprofile", false, "write a CPU profile of the run")
}

func RunAdapt(am *AdaptModel) {
	if am.Profile {
		defer profile.Start(profile.CPUProfile).Stop()
	}

	ap := &AdaptParameters.Parameters{}
	if am.ParamFile != "" {
		data, err := os.ReadFile(am.ParamFile)
		if err != nil {
			fmt.Printf("unable to read parameters file: %v\n", err)
			os.Exit(1)
		}
		if err = ap.Parse(data); err != nil {
			fmt.Printf("unable to parse parameters file: %v\n", err)
			os.Exit(1)
		}
	} else {
		_ = ap.Parse([]byte("{}"))
		ap.Threads = runtime.NumCPU()
	}
	ap.Print()

	g, err := readfiles.ReadSU2(am.GridFile)
	if err != nil {
		fmt.Printf("unable to read grid: %v\n", err)
		os.Exit(1)
	}

	var metric []float64
	if am.MetricFile != "" {
		metric, err = readfiles.ReadMetric(am.MetricFile, g.NNodes, 3)
		if err != nil {
			fmt.Printf("unable to read metric: %v\n", err)
			os.Exit(1)
		}
	}

	m, err := mesh.New(2, g.Coords, g.EToV, metric, g.Boundary, mesh.Config{
		Threads:       ap.Threads,
		BucketScaling: ap.BucketScaling,
	})
	if err != nil {
		fmt.Printf("invalid input mesh: %v\n", err)
		os.Exit(1)
	}

	stats := adapt.Adapt(m, adapt.Options{
		LLow:             ap.LLow,
		LMax:             ap.LMax,
		QMin:             ap.QMin,
		MaxSweeps:        ap.MaxSweeps,
		SmoothIterations: ap.SmoothIterations,
		SmoothTolerance:  ap.SmoothTolerance,
	})
	fmt.Printf("adapted: %d nodes, %d elements, edge rms %.4f, min quality %.4f\n",
		stats.NNodes, stats.NElements, stats.EdgeRMS, stats.MinQuality)

	out := &readfiles.Grid2D{
		NNodes:    int(m.NNodes),
		NElements: int(m.NElements),
		Coords:    m.Coords,
		EToV:      m.ENList,
		Boundary:  m.Boundary,
		Markers:   g.Markers,
	}
	if err = readfiles.WriteSU2(am.OutFile, out); err != nil {
		fmt.Printf("unable to write grid: %v\n", err)
		os.Exit(1)
	}
	if am.MetricFile != "" {
		if err = readfiles.WriteMetric(am.OutFile+".metric", m.Metric, 3); err != nil {
			fmt.Printf("unable to write metric: %v\n", err)
			os.Exit(1)
		}
	}
}
