package gudavision_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	gv "github.com/LynnColeArt/gudavision"
)

func TestVendorDispatch(t *testing.T) {
	tests := []struct {
		vendor gv.Vendor
		lib    gv.Library
		token  string
		want   string
	}{
		{gv.CUDA, gv.LibRuntime, "Malloc", "cudaMalloc"},
		{gv.HIP, gv.LibRuntime, "Malloc", "hipMalloc"},
		{gv.CUDA, gv.LibRuntime, "StreamSynchronize", "cudaStreamSynchronize"},
		{gv.HIP, gv.LibRuntime, "LaunchKernel", "hipLaunchKernel"},
		{gv.CUDA, gv.LibRand, "CreateGenerator", "curandCreateGenerator"},
		{gv.HIP, gv.LibRand, "CreateGenerator", "hiprandCreateGenerator"},
		{gv.CUDA, gv.LibSolver, "DnCreate", "cusolverDnCreate"},
		{gv.HIP, gv.LibSolver, "DnCreate", "hipsolverDnCreate"},
		{gv.CUDA, gv.LibFFT, "Plan1d", "cufftPlan1d"},
		{gv.HIP, gv.LibFFT, "Plan1d", "hipfftPlan1d"},
		{gv.CUDA, gv.Library(9), "Plan1d", "Plan1d"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.vendor.DispatchLib(tt.lib, tt.token))
		})
	}
	assert.Equal(t, gv.CUDA.DispatchLib(gv.LibRuntime, "Free"), gv.CUDA.Dispatch("Free"))
}

func TestVendorAttributeName(t *testing.T) {
	tests := []struct {
		attr       gv.Attribute
		cuda, hip string
	}{
		{gv.AttrMultiProcessorCount, "cudaDevAttrMultiProcessorCount", "hipDeviceAttributeMultiprocessorCount"},
		{gv.AttrMaxThreadsPerMultiProcessor, "cudaDevAttrMaxThreadsPerMultiProcessor", "hipDeviceAttributeMaxThreadsPerMultiProcessor"},
		{gv.AttrMaxSharedMemoryPerBlockOptin, "cudaDevAttrMaxSharedMemoryPerBlockOptin", "hipDeviceAttributeSharedMemPerBlockOptin"},
	}
	for _, tt := range tests {
		t.Run(tt.attr.String(), func(t *testing.T) {
			assert.Equal(t, tt.cuda, gv.CUDA.AttributeName(tt.attr))
			assert.Equal(t, tt.hip, gv.HIP.AttributeName(tt.attr))
		})
	}
	assert.Empty(t, gv.CUDA.AttributeName(gv.Attribute(-1)))
}

func TestStatusNames(t *testing.T) {
	tests := []struct {
		st        gv.Status
		cuda, hip string
	}{
		{gv.Success, "cudaSuccess", "hipSuccess"},
		{gv.ErrorMemoryAllocation, "cudaErrorMemoryAllocation", "hipErrorMemoryAllocation"},
		{gv.ErrorInvalidValue, "cudaErrorInvalidValue", "hipErrorInvalidValue"},
		{gv.ErrorLaunchFailure, "cudaErrorLaunchFailure", "hipErrorLaunchFailure"},
		{gv.Status(12345), "cudaError(12345)", "hipError(12345)"},
	}
	for _, tt := range tests {
		t.Run(tt.cuda, func(t *testing.T) {
			assert.Equal(t, tt.cuda, tt.st.Name(gv.CUDA))
			assert.Equal(t, tt.hip, tt.st.Name(gv.HIP))
		})
	}
	assert.Equal(t, gv.ActiveVendor().Dispatch("ErrorNotReady"), gv.ErrorNotReady.String())
}

func TestStatusErr(t *testing.T) {
	assert.NoError(t, gv.Success.Err("Malloc"))

	tests := []struct {
		st    gv.Status
		check func(error) bool
	}{
		{gv.ErrorMemoryAllocation, gv.IsMemoryError},
		{gv.ErrorInvalidDevicePointer, gv.IsMemoryError},
		{gv.ErrorInvalidValue, gv.IsInvalidArgError},
		{gv.ErrorInvalidConfiguration, gv.IsInvalidArgError},
		{gv.ErrorLaunchFailure, gv.IsExecutionError},
	}
	for _, tt := range tests {
		t.Run(tt.st.Token(), func(t *testing.T) {
			err := tt.st.Err("Malloc")
			assert.Error(t, err)
			assert.True(t, tt.check(err))
			assert.Equal(t, tt.st, gv.StatusOf(err))
			assert.Contains(t, err.Error(), gv.ActiveVendor().Dispatch("Malloc"))
		})
	}
}
