package objects

// Object IDs from the OMA LwM2M registry.
const (
	SecurityObjectID uint16 = 0
	ServerObjectID   uint16 = 1
	DeviceObjectID   uint16 = 3
	PressureObjectID uint16 = 3323
)

// Security object (0) resources.
const (
	SecurityURI              uint16 = 0
	SecurityBootstrap        uint16 = 1
	SecurityMode             uint16 = 2
	SecurityPublicKey        uint16 = 3
	SecurityServerPublicKey  uint16 = 4
	SecuritySecretKey        uint16 = 5
	SecuritySMSMode          uint16 = 6
	SecuritySMSKeyParams     uint16 = 7
	SecuritySMSSecretKey     uint16 = 8
	SecuritySMSServerNumber  uint16 = 9
	SecurityShortServerID    uint16 = 10
	SecurityHoldOff          uint16 = 11
	SecurityBootstrapTimeout uint16 = 12
)

// Server object (1) resources.
const (
	ServerShortID        uint16 = 0
	ServerLifetime       uint16 = 1
	ServerMinPeriod      uint16 = 2
	ServerMaxPeriod      uint16 = 3
	ServerDisable        uint16 = 4
	ServerDisableTimeout uint16 = 5
	ServerStoring        uint16 = 6
	ServerBinding        uint16 = 7
	ServerUpdateTrigger  uint16 = 8
)

// Device object (3) resources.
const (
	DeviceManufacturer    uint16 = 0
	DeviceModelNumber     uint16 = 1
	DeviceSerialNumber    uint16 = 2
	DeviceFirmwareVersion uint16 = 3
	DeviceFactoryReset    uint16 = 5
	DeviceTimezone        uint16 = 15
)

// Pressure object (3323) resources, IPSO naming.
const (
	PressureMinMeasured     uint16 = 5601
	PressureMaxMeasured     uint16 = 5602
	PressureMinRange        uint16 = 5603
	PressureMaxRange        uint16 = 5604
	PressureResetMinMax     uint16 = 5605
	PressureSensorValue     uint16 = 5700
	PressureSensorUnits     uint16 = 5701
	PressureApplicationType uint16 = 5750
	PressureCalibration     uint16 = 5821
)
