package gudavision

import "fmt"

// Library identifies a vendor runtime library family whose symbols are
// prefixed independently of the core runtime.
type Library int

const (
	LibRuntime Library = iota // cuda* / hip*
	LibRand                   // curand* / hiprand*
	LibSolver                 // cusolver* / hipsolver*
	LibFFT                    // cufft* / hipfft*
)

func (l Library) String() string {
	switch l {
	case LibRuntime:
		return "runtime"
	case LibRand:
		return "rand"
	case LibSolver:
		return "solver"
	case LibFFT:
		return "fft"
	default:
		return fmt.Sprintf("Library(%d)", int(l))
	}
}

// Attribute is a vendor-neutral device attribute alias. Launch
// configuration code queries these instead of vendor enum values.
type Attribute int

const (
	AttrMultiProcessorCount Attribute = iota
	AttrMaxThreadsPerMultiProcessor
	AttrMaxSharedMemoryPerBlockOptin
)

func (a Attribute) String() string {
	switch a {
	case AttrMultiProcessorCount:
		return "MultiProcessorCount"
	case AttrMaxThreadsPerMultiProcessor:
		return "MaxThreadsPerMultiProcessor"
	case AttrMaxSharedMemoryPerBlockOptin:
		return "MaxSharedMemoryPerBlockOptin"
	default:
		return fmt.Sprintf("Attribute(%d)", int(a))
	}
}

// Vendor is the symbol table of one GPU runtime. Switching vendors only
// changes which Vendor is active; kernels never name vendor symbols.
type Vendor struct {
	Name        string // short build name, "cuda" or "dcu"
	Accelerator string // vendor label as reported by device plugins

	prefixes   [4]string
	attributes [3]string
}

var (
	// CUDA is the NVIDIA runtime table.
	CUDA = Vendor{
		Name:        "cuda",
		Accelerator: "NVIDIA",
		prefixes:    [4]string{"cuda", "curand", "cusolver", "cufft"},
		attributes: [3]string{
			"cudaDevAttrMultiProcessorCount",
			"cudaDevAttrMaxThreadsPerMultiProcessor",
			"cudaDevAttrMaxSharedMemoryPerBlockOptin",
		},
	}

	// HIP is the ROCm/HIP runtime table used by Hygon DCU builds.
	HIP = Vendor{
		Name:        "dcu",
		Accelerator: "Hygon-DCU",
		prefixes:    [4]string{"hip", "hiprand", "hipsolver", "hipfft"},
		attributes: [3]string{
			"hipDeviceAttributeMultiprocessorCount",
			"hipDeviceAttributeMaxThreadsPerMultiProcessor",
			"hipDeviceAttributeSharedMemPerBlockOptin",
		},
	}
)

// Dispatch maps a neutral runtime token to the vendor symbol,
// e.g. "Malloc" -> "cudaMalloc" or "hipMalloc".
func (v Vendor) Dispatch(token string) string {
	return v.DispatchLib(LibRuntime, token)
}

// DispatchLib maps a token within a library family, e.g.
// (LibRand, "CreateGenerator") -> "curandCreateGenerator".
func (v Vendor) DispatchLib(lib Library, token string) string {
	if lib < LibRuntime || lib > LibFFT {
		return token
	}
	return v.prefixes[lib] + token
}

// AttributeName returns the vendor enum name of a neutral attribute alias.
func (v Vendor) AttributeName(a Attribute) string {
	if a < AttrMultiProcessorCount || a > AttrMaxSharedMemoryPerBlockOptin {
		return ""
	}
	return v.attributes[a]
}

func (v Vendor) String() string { return v.Name }
