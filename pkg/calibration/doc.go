// Package calibration reads and writes standard-lamp calibration files.
//
// A calibration file is plain text with one wavelength/radiance pair per
// line. Pairs may be separated by whitespace, a comma or a semicolon. Lines
// starting with '#' are comments; "# serial:" and "# usage:" comments carry
// the device serial number and usage mode the file was made for.
//
//	# spvis calibration
//	# serial: LDA~G40090129
//	# usage: 0
//	380.000	0.0012
//	381.000	0.0013
//
// Files follow the vendor naming convention Sp_<serial>.txt.
package calibration
