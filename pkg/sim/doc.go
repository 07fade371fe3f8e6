// Package sim simulates spectrometers behind the device.Transport interface.
//
// The simulation follows the library's rules closely enough to exercise a
// session end to end: devices must be opened and activated with a matching
// license file, integration settings are range checked against the model's
// limits, dark subtraction requires a prior dark acquisition, the detector
// saturates at 65535 counts and a lamp calibration converts counts into
// spectral radiance.
//
// Exposure time is simulated by sleeping for a fraction of the requested
// integration × averaging (Config.SleepScale); tests use 0.
package sim
