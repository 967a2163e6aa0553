package interfaces

import (
	"context"

	fldmodels "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models"
)

type ReadingRepository interface {
	Indexer

	// InsertOne appends a reading; ErrDuplicate when (device, entry) is already stored
	InsertOne(ctx context.Context, r fldmodels.Reading) error

	// ListByDevice returns a device's readings, newest first
	ListByDevice(ctx context.Context, deviceID string) ([]fldmodels.Reading, error)

	// Latest returns the newest stored reading of a device
	Latest(ctx context.Context, deviceID string) (*fldmodels.Reading, error)
}
