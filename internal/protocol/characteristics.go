package protocol

import "github.com/google/uuid"

// GATT characteristics the sensor exposes. The link layer writes command
// packets to CharWrite and subscribes to both notify channels; the realtime
// frame stream arrives on CharNotifyMain.
var (
	CharWrite      = uuid.MustParse("6e400002-b5a3-f393-e0a9-e50e24dcca9e")
	CharNotify     = uuid.MustParse("6e400003-b5a3-f393-e0a9-e50e24dcca9e")
	CharNotifyMain = uuid.MustParse("de5bf729-d711-4e47-af26-65e3012a5dc7")
)
