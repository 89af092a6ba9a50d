package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content fingerprints. The version suffix allows the
// text format to evolve without colliding with older fingerprints.
const (
	DomainFunction = "xlsynth/function/v1"
	DomainPackage  = "xlsynth/package/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint identifies the printed form of a function. Two functions with
// the same fingerprint print identically, so a pass that leaves the
// fingerprint unchanged made no observable edit.
func Fingerprint(f *FunctionBase) string {
	return hashWithDomain(DomainFunction, []byte(FormatFunctionBase(f)))
}

// PackageFingerprint identifies the printed form of a whole package.
func PackageFingerprint(p *Package) string {
	return hashWithDomain(DomainPackage, []byte(FormatPackage(p)))
}
