package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/dynamitemc/chunkstore/region"
)

const ConfigFile = "chunkstore.yml"

type Dimension struct {
	MinSectionY  int32 `yaml:"min_section_y"`
	SectionCount int   `yaml:"section_count"`
	HasSkyLight  bool  `yaml:"has_sky_light"`
}

type Config struct {
	World        string    `yaml:"world"`
	Dimension    Dimension `yaml:"dimension"`
	Compression  string    `yaml:"compression"`
	Workers      int       `yaml:"workers"`
	DataVersion  int32     `yaml:"data_version"`
	DefaultBiome string    `yaml:"default_biome"`
}

func DefaultConfig() *Config {
	return &Config{
		World: "world",
		Dimension: Dimension{
			MinSectionY:  -4,
			SectionCount: 24,
			HasSkyLight:  true,
		},
		Compression:  "zlib",
		Workers:      4,
		DataVersion:  3337,
		DefaultBiome: "minecraft:plains",
	}
}

// LoadConfig reads the config at path, writing the defaults there first if
// the file does not exist.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		file, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		e := yaml.NewEncoder(file)
		defer e.Close()
		return config, e.Encode(config)
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.Dimension.SectionCount <= 0 {
		return fmt.Errorf("dimension.section_count must be positive, got %d", c.Dimension.SectionCount)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	_, err := region.ParseCompression(c.Compression)
	return err
}

func (c *Config) RegionCompression() region.Compression {
	comp, _ := region.ParseCompression(c.Compression)
	return comp
}
