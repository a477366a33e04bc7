package AdaptParameters

import (
	"fmt"
	"math"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type Parameters struct {
	Title            string  `yaml:"Title"`
	LLow             float64 `yaml:"LLow"`
	LMax             float64 `yaml:"LMax"`
	QMin             float64 `yaml:"QMin"`
	MaxSweeps        int     `yaml:"MaxSweeps"`
	SmoothIterations int     `yaml:"SmoothIterations"`
	SmoothTolerance  float64 `yaml:"SmoothTolerance"`
	Threads          int     `yaml:"Threads"`
	BucketScaling    int     `yaml:"BucketScaling"`
}

func (ap *Parameters) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, ap); err != nil {
		return err
	}
	ap.applyDefaults()
	return nil
}

func (ap *Parameters) applyDefaults() {
	if ap.LLow == 0 {
		ap.LLow = 1.0 / math.Sqrt2
	}
	if ap.LMax == 0 {
		ap.LMax = math.Sqrt2
	}
	if ap.QMin == 0 {
		ap.QMin = 0.4
	}
	if ap.MaxSweeps == 0 {
		ap.MaxSweeps = 10
	}
	if ap.SmoothIterations == 0 {
		ap.SmoothIterations = 50
	}
	if ap.SmoothTolerance == 0 {
		ap.SmoothTolerance = 1e-5
	}
	if ap.Threads == 0 {
		ap.Threads = 1
	}
	if ap.BucketScaling == 0 {
		ap.BucketScaling = 8
	}
}

func (ap *Parameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ap.Title)
	fmt.Printf("%8.5f\t\t= LLow\n", ap.LLow)
	fmt.Printf("%8.5f\t\t= LMax\n", ap.LMax)
	fmt.Printf("%8.5f\t\t= QMin\n", ap.QMin)
	fmt.Printf("[%d]\t\t\t= MaxSweeps\n", ap.MaxSweeps)
	fmt.Printf("[%d]\t\t\t= SmoothIterations\n", ap.SmoothIterations)
	fmt.Printf("[%d]\t\t\t= Threads\n", ap.Threads)
	fmt.Printf("[%d]\t\t\t= BucketScaling\n", ap.BucketScaling)
}
