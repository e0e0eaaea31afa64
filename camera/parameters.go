package camera

import (
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
)

// CalibrationParameters is the on-disk JSON form of one camera's calibration.
// Extrinsics come either as separate "R" and "T" entries or as a packed
// row-major 3x4 "RT" matrix. Distortion entries may be present in calibration
// files but are ignored here: calibration is assumed to be rectified upstream.
type CalibrationParameters struct {
	K            []float64 `json:"K"`
	R            []float64 `json:"R"`
	T            []float64 `json:"T"`
	RT           []float64 `json:"RT"`
	ImgSize      []float64 `json:"imgSize"`
	DistCoeff    []float64 `json:"distCoeff,omitempty"`
	RectifyAlpha float64   `json:"rectifyAlpha,omitempty"`
}

// CheckValid checks if the fields of CalibrationParameters describe a usable camera.
func (params *CalibrationParameters) CheckValid() error {
	if params == nil {
		return errors.New("calibration parameters do not exist")
	}
	if len(params.K) != 9 {
		return errors.Errorf("K must have 9 entries, got %d", len(params.K))
	}
	if len(params.RT) != 12 {
		if len(params.R) != 9 {
			return errors.Errorf("R must have 9 entries, got %d", len(params.R))
		}
		if len(params.T) != 3 {
			return errors.Errorf("T must have 3 entries, got %d", len(params.T))
		}
	}
	if len(params.ImgSize) != 2 {
		return errors.Errorf("imgSize must have 2 entries, got %d", len(params.ImgSize))
	}
	return nil
}

// Camera builds the derived camera model from the raw parameters.
func (params *CalibrationParameters) Camera(name string) (*Camera, error) {
	if err := params.CheckValid(); err != nil {
		return nil, errors.Wrapf(err, "camera %q", name)
	}
	k := mat.NewDense(3, 3, append([]float64(nil), params.K...))
	var r *mat.Dense
	var t r3.Vector
	if len(params.RT) == 12 {
		r = mat.NewDense(3, 3, nil)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				r.Set(i, j, params.RT[i*4+j])
			}
		}
		t = r3.Vector{X: params.RT[3], Y: params.RT[7], Z: params.RT[11]}
	} else {
		r = mat.NewDense(3, 3, append([]float64(nil), params.R...))
		t = r3.Vector{X: params.T[0], Y: params.T[1], Z: params.T[2]}
	}
	cam, err := NewCamera(name, k, r, t)
	if err != nil {
		return nil, err
	}
	cam.Width = params.ImgSize[0]
	cam.Height = params.ImgSize[1]
	return cam, nil
}

// NewCamerasFromJSON parses a calibration document mapping camera names to their
// parameters. Cameras are returned sorted by name so view indices are stable.
func NewCamerasFromJSON(data []byte) ([]*Camera, error) {
	all := map[string]*CalibrationParameters{}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, errors.Wrap(err, "error parsing calibration JSON")
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	cameras := make([]*Camera, 0, len(names))
	for _, name := range names {
		cam, err := all[name].Camera(name)
		if err != nil {
			return nil, err
		}
		cameras = append(cameras, cam)
	}
	return cameras, nil
}

// NewCamerasFromJSONFile reads a calibration JSON file and returns its cameras.
func NewCamerasFromJSONFile(jsonPath string) ([]*Camera, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening calibration file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	data, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading calibration file")
	}
	return NewCamerasFromJSON(data)
}
