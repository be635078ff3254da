package auth

import "github.com/pebbe/zmq4"

// z85EncodeForLog renders a raw CURVE public key as its Z85 text form
// for use as a fallback user id, matching conftest.py's
// CurveWithUntrustedKeyForServer falling back to z85.encode(key) when
// no friendlier identity is known.
func z85EncodeForLog(rawKey string) string {
	if rawKey == "" {
		return ""
	}
	encoded, err := zmq4.Z85encode(rawKey)
	if err != nil {
		return ""
	}
	return encoded
}
