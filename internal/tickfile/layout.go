package tickfile

import (
	"path/filepath"

	"github.com/automatedalgo/apex/internal/domain"
)

// BucketPath returns the path of a bucket's plain (uncompressed) file
// under root, following the EXCHANGE/SYMBOL/STREAM/YYYY-MM-DD.tkbn
// layout from spec.md §6.
func BucketPath(root string, id domain.TickFileBucketID) string {
	return filepath.Join(
		root,
		id.Instrument.ExchangeID().String(),
		id.Instrument.NativeSymbol(),
		id.Stream.String(),
		id.Date+".tkbn",
	)
}

// BucketPathGz returns the gzip-wrapped variant of BucketPath.
func BucketPathGz(root string, id domain.TickFileBucketID) string {
	return BucketPath(root, id) + ".gz"
}
