package source

import (
	"context"
	"encoding/gob"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kass/go-geofence/pkg/models"
)

// gobData is the serializable form of a zone set
type gobData struct {
	Records []models.ZoneRecord
	Count   int
	SavedAt time.Time
}

// GobFile reads zone records written by SaveGob
type GobFile struct {
	Path string
}

// SaveGob saves records to a binary file
func SaveGob(filename string, records []models.ZoneRecord) error {
	file, err := os.Create(filename)
	if err != nil {
		return eris.Wrapf(err, "source: create %s", filename)
	}
	defer file.Close()

	data := gobData{
		Records: records,
		Count:   len(records),
		SavedAt: time.Now().UTC(),
	}

	encoder := gob.NewEncoder(file)
	if err := encoder.Encode(data); err != nil {
		return eris.Wrap(err, "source: encode zones")
	}

	return file.Sync()
}

// Load implements Source
func (s GobFile) Load(ctx context.Context) ([]models.ZoneRecord, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open %s", s.Path)
	}
	defer file.Close()

	var data gobData
	decoder := gob.NewDecoder(file)
	if err := decoder.Decode(&data); err != nil {
		return nil, eris.Wrap(err, "source: decode zones")
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "source: load cancelled")
	}
	if data.Count != len(data.Records) {
		return nil, eris.Errorf("source: %s holds %d records, header says %d", s.Path, len(data.Records), data.Count)
	}

	return data.Records, nil
}
