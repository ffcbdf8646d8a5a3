package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bytedance/sonic"
	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/stratisd/internal/domain/batch"
	"github.com/GriffinCanCode/stratisd/internal/shared/status"
)

// SeedFile is the on-disk layout of a demo seed file
type SeedFile struct {
	Pools []PoolSeed `json:"pools" yaml:"pools" toml:"pools"`
}

// PoolSeed describes one pool and its children
type PoolSeed struct {
	Name         string         `json:"name" yaml:"name" toml:"name"`
	Raid         string         `json:"raid" yaml:"raid" toml:"raid"`
	Devices      []DeviceSeed   `json:"devices" yaml:"devices" toml:"devices"`
	CacheDevices []DeviceSeed   `json:"cache_devices" yaml:"cache_devices" toml:"cache_devices"`
	Volumes      []VolumeSeed   `json:"volumes" yaml:"volumes" toml:"volumes"`
	Snapshots    []SnapshotSeed `json:"snapshots" yaml:"snapshots" toml:"snapshots"`
}

type DeviceSeed struct {
	Name string `json:"name" yaml:"name" toml:"name"`
	Type string `json:"type" yaml:"type" toml:"type"`
	Size uint64 `json:"size" yaml:"size" toml:"size"`
}

type VolumeSeed struct {
	Name       string `json:"name" yaml:"name" toml:"name"`
	MountPoint string `json:"mount_point" yaml:"mount_point" toml:"mount_point"`
	Quota      string `json:"quota" yaml:"quota" toml:"quota"`
}

type SnapshotSeed struct {
	Name   string `json:"name" yaml:"name" toml:"name"`
	Source string `json:"source" yaml:"source" toml:"source"`
}

// SeedResult counts processed seed files
type SeedResult struct {
	Loaded int
	Failed int
}

// Seeder replays seed files through the public create operations, so a
// seeded pool is indistinguishable from one created over the bus
type Seeder struct {
	reg     *Registry
	pattern string
	logger  *zap.Logger
}

// NewSeeder creates a seeder for files matching pattern, e.g.
// "seed/**/*.{yaml,yml,toml,json}"
func NewSeeder(reg *Registry, pattern string, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{reg: reg, pattern: pattern, logger: logger}
}

// Seed loads every matching file. Per-file failures are logged and counted;
// only a malformed pattern is returned as an error.
func (s *Seeder) Seed() (SeedResult, error) {
	var res SeedResult
	if s.pattern == "" {
		return res, nil
	}

	files, err := doublestar.FilepathGlob(s.pattern)
	if err != nil {
		return res, fmt.Errorf("bad seed pattern %q: %w", s.pattern, err)
	}
	sort.Strings(files)

	s.logger.Info("seeding registry", zap.String("pattern", s.pattern), zap.Int("files", len(files)))

	for _, path := range files {
		f, err := LoadSeedFile(path)
		if err == nil {
			err = s.Apply(f)
		}
		if err != nil {
			res.Failed++
			s.logger.Warn("seed file failed", zap.String("file", path), zap.Error(err))
			continue
		}
		res.Loaded++
		s.logger.Info("seed file loaded", zap.String("file", path), zap.Int("pools", len(f.Pools)))
	}

	s.logger.Info("seeding complete", zap.Int("loaded", res.Loaded), zap.Int("failed", res.Failed))
	return res, nil
}

// LoadSeedFile reads and decodes a seed file, picking the decoder by
// extension
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return DecodeSeed(data, filepath.Ext(path))
}

// DecodeSeed decodes seed data in the format named by ext. Data with an
// unknown extension is sniffed and accepted if it is JSON.
func DecodeSeed(data []byte, ext string) (*SeedFile, error) {
	var f SeedFile
	var err error

	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &f)
	case "toml":
		err = toml.Unmarshal(data, &f)
	case "json":
		err = sonic.Unmarshal(data, &f)
	default:
		mt := mimetype.Detect(data)
		if !mt.Is("application/json") {
			return nil, fmt.Errorf("unsupported seed format %q (%s)", ext, mt)
		}
		err = sonic.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s seed: %w", ext, err)
	}
	return &f, nil
}

// Apply creates everything f describes. It keeps going after a failure and
// returns all failures joined.
func (s *Seeder) Apply(f *SeedFile) error {
	var errs []error
	for _, ps := range f.Pools {
		if err := s.applyPool(ps); err != nil {
			errs = append(errs, fmt.Errorf("pool %q: %w", ps.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Seeder) applyPool(ps PoolSeed) error {
	raid, err := ParseRaidLevel(ps.Raid)
	if err != nil {
		return err
	}
	devices, err := deviceSpecs(ps.Devices)
	if err != nil {
		return err
	}
	if _, err := s.reg.CreatePool(PoolSpec{Name: ps.Name, Devices: devices, Raid: raid}); err != nil {
		return err
	}

	var errs []error

	if len(ps.Volumes) > 0 {
		specs := make([]VolumeSpec, len(ps.Volumes))
		for i, v := range ps.Volumes {
			specs[i] = VolumeSpec{Name: v.Name, MountPoint: v.MountPoint, Quota: v.Quota}
		}
		rep, err := s.reg.CreateVolumes(ps.Name, specs)
		errs = append(errs, reportError("volumes", rep, err))
	}

	if len(ps.CacheDevices) > 0 {
		cache, err := deviceSpecs(ps.CacheDevices)
		if err != nil {
			errs = append(errs, err)
		} else {
			rep, err := s.reg.AddCacheDevices(ps.Name, cache)
			errs = append(errs, reportError("cache devices", rep, err))
		}
	}

	for _, snap := range ps.Snapshots {
		if _, err := s.reg.CreateSnapshot(ps.Name, snap.Source, snap.Name); err != nil {
			errs = append(errs, fmt.Errorf("snapshot %q: %w", snap.Name, err))
		}
	}

	return errors.Join(errs...)
}

func deviceSpecs(seeds []DeviceSeed) ([]DeviceSpec, error) {
	out := make([]DeviceSpec, len(seeds))
	for i, d := range seeds {
		t, err := ParseDeviceType(d.Type)
		if err != nil {
			return nil, err
		}
		out[i] = DeviceSpec{Name: d.Name, Type: t, Size: d.Size}
	}
	return out, nil
}

// reportError folds a bulk report into a single error naming the failed
// items
func reportError(what string, rep *batch.Report, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if rep.Code == status.OK {
		return nil
	}
	var failed []string
	for _, res := range rep.Results {
		if !res.OK() {
			failed = append(failed, fmt.Sprintf("%s (%s)", res.Key, res.Message))
		}
	}
	return status.Errorf(status.ListFailure, "%s: %s: %s", what, rep.Message, strings.Join(failed, "; "))
}
