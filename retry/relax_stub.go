// relax_stub.go: no-op cpuRelax where no spin hint can be emitted
//
// Covers other architectures, cgo-disabled builds and the noasm tag. The
// retry loops still yield the P periodically through backoff.

//go:build (!amd64 && !arm64) || !cgo || noasm

package retry

func cpuRelax() {}
