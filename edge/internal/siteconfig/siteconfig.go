// Package siteconfig loads the description of the site an edge device
// watches: which site and device it reports as, and which cameras it reads.
package siteconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownCamera is returned by SiteConfig.Camera for an ID that is not
// configured.
var ErrUnknownCamera = errors.New("unknown camera")

type Camera struct {
	CameraID string   `yaml:"camera_id" json:"camera_id"`
	Name     string   `yaml:"name" json:"name"`
	RTSPURL  string   `yaml:"rtsp_url" json:"rtsp_url"`
	Zones    []string `yaml:"zones" json:"zones"`
}

// DefaultZone returns the camera's first zone, or "" when it has none.
func (c Camera) DefaultZone() string {
	if len(c.Zones) == 0 {
		return ""
	}
	return c.Zones[0]
}

type SiteConfig struct {
	SiteID   string   `yaml:"site_id" json:"site_id"`
	DeviceID string   `yaml:"device_id" json:"device_id"`
	Cameras  []Camera `yaml:"cameras" json:"cameras"`
}

// Load reads a YAML site file such as configs/cameras.yaml.
func Load(path string) (*SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site config: %w", err)
	}
	return Parse(data)
}

// LoadJSON reads a JSON site file with the same layout as the YAML form.
func LoadJSON(path string) (*SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site config: %w", err)
	}

	var sc SiteConfig
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse site config %s: %w", filepath.Base(path), err)
	}
	if err := sc.normalize(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadFile picks Load or LoadJSON from the file extension.
func LoadFile(path string) (*SiteConfig, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadJSON(path)
	}
	return Load(path)
}

// Parse decodes YAML site configuration. An empty document is treated as an
// empty mapping and therefore fails validation.
func Parse(data []byte) (*SiteConfig, error) {
	var sc SiteConfig
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse site config: %w", err)
	}
	if err := sc.normalize(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Camera looks up a configured camera by ID.
func (s *SiteConfig) Camera(id string) (Camera, error) {
	for _, c := range s.Cameras {
		if c.CameraID == id {
			return c, nil
		}
	}
	return Camera{}, fmt.Errorf("%w %q", ErrUnknownCamera, id)
}

func (s *SiteConfig) normalize() error {
	if s.SiteID == "" || s.DeviceID == "" {
		return errors.New("site config must include site_id and device_id")
	}

	for i := range s.Cameras {
		c := &s.Cameras[i]
		if c.CameraID == "" || c.RTSPURL == "" {
			return fmt.Errorf("camera %d: each camera must have camera_id and rtsp_url", i)
		}
		if c.Name == "" {
			c.Name = c.CameraID
		}
		if c.Zones == nil {
			c.Zones = []string{}
		}
	}
	return nil
}
