package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// Граф фрагментов и загрузчик
	GraInfo                  Code = 1000
	GraClassNotFound         Code = 1001
	GraGenericCount          Code = 1002
	GraGenericDuplicate      Code = 1003
	GraCyclicDependency      Code = 1004
	GraDependencyNotInModule Code = 1005
	GraDependencyFailed      Code = 1006
	GraClassNameMismatch     Code = 1007
	GraNotInstantiated       Code = 1008

	// Переопределения и виртуальные таблицы
	OvrInfo                Code = 2000
	OvrMissingOverride     Code = 2001
	OvrOverrideNotFound    Code = 2002
	OvrExtraneousOverride  Code = 2003
	OvrStageAdded          Code = 2004
	OvrStageMismatch       Code = 2005
	OvrMissingAbstract     Code = 2006
	OvrUnnecessaryOverride Code = 2007
	OvrUnnecessaryAbstract Code = 2008

	// Конфликты имён
	NamInfo                     Code = 3000
	NamFunctionRedefined        Code = 3001
	NamFunctionVariableConflict Code = 3002
	NamVariableRedefined        Code = 3003
	NamSemanticTypeConflict     Code = 3004
	NamSemanticCBufferConflict  Code = 3005
	NamAmbiguousReference       Code = 3006
	NamBaseNameConflict         Code = 3007

	// Линковка
	LnkInfo                  Code = 4000
	LnkExternNotFound        Code = 4001
	LnkStageNotFound         Code = 4002
	LnkAmbiguousStage        Code = 4003
	LnkAbstractCall          Code = 4004
	LnkAmbiguousComposition  Code = 4005
	LnkCompositionNotFound   Code = 4006
	LnkImpossibleBaseCall    Code = 4007
	LnkImpossibleVirtualCall Code = 4008
	LnkIndexerNotLiteral     Code = 4009
	LnkIndexOutOfRange       Code = 4010
	LnkExternNotClassType    Code = 4011
	LnkStageInitNotClassType Code = 4012
	LnkShaderVariable        Code = 4013
	LnkCyclicMethod          Code = 4014
	LnkShaderSignature       Code = 4015
	LnkStageOutsideField     Code = 4016
	LnkCompositionDepth      Code = 4017

	// Потоки (streams)
	StrInfo                     Code = 5000
	StrRecursiveCall            Code = 5001
	StrIncompleteTessellation   Code = 5002
	StrCrossStageCall           Code = 5003
	StrMultidimCompositionArray Code = 5004
	StrMultiDimArray            Code = 5005
	StrStreamNotFound           Code = 5006
	StrMissingStreamsPrefix     Code = 5007
	StrExtraStreamsPrefix       Code = 5008

	// Синтаксис и препроцессор (внешний парсер)
	SynInfo         Code = 6000
	SynError        Code = 6001
	SynPreprocessor Code = 6002

	// Ввод-вывод
	IOInfo       Code = 7000
	IOLoadFailed Code = 7001
	IOCache      Code = 7002
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown error",

	GraInfo:                  "Fragment graph information",
	GraClassNotFound:         "Shader class not found",
	GraGenericCount:          "Wrong number of generic arguments",
	GraGenericDuplicate:      "Duplicate generic parameter name",
	GraCyclicDependency:      "Cyclic dependency between shader classes",
	GraDependencyNotInModule: "Base class is not part of the compilation context",
	GraDependencyFailed:      "Dependency failed to analyze",
	GraClassNameMismatch:     "Source declares a different shader class",
	GraNotInstantiated:       "Generic shader class used without arguments",

	OvrInfo:                "Virtual table information",
	OvrMissingOverride:     "Missing override qualifier",
	OvrOverrideNotFound:    "Override of a non-existent method",
	OvrExtraneousOverride:  "Override of an abstract declaration",
	OvrStageAdded:          "Stage qualifier added to override",
	OvrStageMismatch:       "Stage qualifier mismatch",
	OvrMissingAbstract:     "Method declaration without abstract qualifier",
	OvrUnnecessaryOverride: "Override qualifier on a declaration",
	OvrUnnecessaryAbstract: "Abstract qualifier on a definition",

	NamInfo:                     "Name resolution information",
	NamFunctionRedefined:        "Method redefined",
	NamFunctionVariableConflict: "Method and field share a name",
	NamVariableRedefined:        "Field redefined",
	NamSemanticTypeConflict:     "Semantic shared by fields of different types",
	NamSemanticCBufferConflict:  "Semantic shared by fields of different constant buffers",
	NamAmbiguousReference:       "Ambiguous reference",
	NamBaseNameConflict:         "Field name conflicts with a base class field",

	LnkInfo:                  "Link information",
	LnkExternNotFound:        "Composition reference not found",
	LnkStageNotFound:         "Stage member not found",
	LnkAmbiguousStage:        "Ambiguous stage member",
	LnkAbstractCall:          "Call to an abstract method",
	LnkAmbiguousComposition:  "Ambiguous composition",
	LnkCompositionNotFound:   "Composition target not found",
	LnkImpossibleBaseCall:    "Base call without base method",
	LnkImpossibleVirtualCall: "This call without matching method",
	LnkIndexerNotLiteral:     "Composition index is not a literal",
	LnkIndexOutOfRange:       "Composition index out of range",
	LnkExternNotClassType:    "Compose field is not a shader class",
	LnkStageInitNotClassType: "Stage initialized field is not a compose shader class",
	LnkShaderVariable:        "Local variable of shader class type",
	LnkCyclicMethod:          "Method calls itself",
	LnkShaderSignature:       "Shader class used as parameter or return type",
	LnkStageOutsideField:     "Stage initializer outside a field declaration",
	LnkCompositionDepth:      "Default composition nesting too deep",

	StrInfo:                     "Stream information",
	StrRecursiveCall:            "Recursive call in stream analysis",
	StrIncompleteTessellation:   "Incomplete tessellation stage set",
	StrCrossStageCall:           "Method shared by several stages",
	StrMultidimCompositionArray: "Multidimensional composition array",
	StrMultiDimArray:            "Foreach over a multidimensional array",
	StrStreamNotFound:           "Stream not found",
	StrMissingStreamsPrefix:     "Stream field used without streams prefix",
	StrExtraStreamsPrefix:       "Non-stream field used with streams prefix",

	SynInfo:         "Syntax information",
	SynError:        "Syntax error",
	SynPreprocessor: "Preprocessor error",

	IOInfo:       "IO information",
	IOLoadFailed: "Failed to load shader source",
	IOCache:      "Cache failure",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("GRA%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("OVR%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("NAM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("LNK%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("STR%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
