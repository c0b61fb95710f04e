package station

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type stationsFile struct {
	Stations []Station `toml:"station"`
}

// Load reads a station directory from the given stations.toml path.
// A missing file yields an empty directory, not an error.
func Load(path string) (*Directory, error) {
	var sf stationsFile
	_, err := toml.DecodeFile(path, &sf)
	if os.IsNotExist(err) {
		return NewDirectory(), nil
	}
	if err != nil {
		return nil, err
	}
	d := NewDirectory()
	for _, s := range sf.Stations {
		if err := d.AddOrReplace(s); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Save writes the directory to the given path, creating parent dirs as needed.
func Save(path string, d *Directory) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(stationsFile{Stations: d.All()})
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
