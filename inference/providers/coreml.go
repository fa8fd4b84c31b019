package providers

const (
	// CoreMLProviderBackend uses Apple CoreML for macOS/iOS acceleration.
	CoreMLProviderBackend ProviderBackend = "coreml"
)

// CoreML provider flags, see coreml_provider_factory.h.
const (
	coreMLUseCPUOnly            uint32 = 0x001
	coreMLEnableOnSubgraph      uint32 = 0x002
	coreMLOnlyDeviceWithANE     uint32 = 0x004
	coreMLOnlyStaticInputShapes uint32 = 0x008
	coreMLCreateMLProgram       uint32 = 0x010
)

// CoreMLOptions contains arguments for the CoreML provider.
// See: https://onnxruntime.ai/docs/execution-providers/CoreML-ExecutionProvider.html
type CoreMLOptions struct {
	// Limit CoreML to running on CPU only.
	CPUOnly bool `json:"cpuOnly" yaml:"cpuOnly"`
	// Enable CoreML EP to run on a subgraph in the body of a control flow operator.
	EnableOnSubgraphs bool `json:"enableOnSubgraphs" yaml:"enableOnSubgraphs"`
	// Only enable CoreML on devices with an Apple Neural Engine.
	RequireANE bool `json:"requireANE" yaml:"requireANE"`
	// Only allow nodes whose inputs have static shapes.
	RequireStaticInputShapes bool `json:"requireStaticInputShapes" yaml:"requireStaticInputShapes"`
	// Create an MLProgram format model. Requires Core ML 5 or later.
	MLProgram bool `json:"mlProgram" yaml:"mlProgram"`
}

// Flags packs the options into the CoreML provider bit field.
func (o CoreMLOptions) Flags() uint32 {
	var flags uint32
	if o.CPUOnly {
		flags |= coreMLUseCPUOnly
	}
	if o.EnableOnSubgraphs {
		flags |= coreMLEnableOnSubgraph
	}
	if o.RequireANE {
		flags |= coreMLOnlyDeviceWithANE
	}
	if o.RequireStaticInputShapes {
		flags |= coreMLOnlyStaticInputShapes
	}
	if o.MLProgram {
		flags |= coreMLCreateMLProgram
	}
	return flags
}
