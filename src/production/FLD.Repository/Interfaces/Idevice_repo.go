package interfaces

import (
	"context"

	fldmodels "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models"
)

type DeviceRepository interface {
	Indexer

	// Create device; ErrDuplicate when the channel id is taken
	Create(ctx context.Context, device *fldmodels.Device) (*fldmodels.Device, error)

	// Read devices
	GetByID(ctx context.Context, id string) (*fldmodels.Device, error)
	List(ctx context.Context) ([]fldmodels.Device, error)
	GetPrimary(ctx context.Context) (*fldmodels.Device, error)

	// Update device
	Update(ctx context.Context, device *fldmodels.Device) (*fldmodels.Device, error)

	// Delete device
	Delete(ctx context.Context, id string) error
}
