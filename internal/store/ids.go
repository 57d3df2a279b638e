package store

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDGenerator returns a fresh object id for an object created at now.
type IDGenerator func(now time.Time) string

// NewObjectID returns ids shaped id_<unix-ms>_<9 random chars>.
func NewObjectID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return "id_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix
}
