package typecheck

import "github.com/dexopt/typecore/internal/lattice"

// descriptorScalar classifies a Dex type descriptor ("I", "Z",
// "Ljava/lang/String;", ...) into its scalar lattice element. Wide
// descriptors ("J", "D") classify as the *low* half of their pair,
// matching how a freshly declared parameter register is seeded.
func descriptorScalar(desc string) lattice.IRType {
	switch desc {
	case "I":
		return lattice.Int
	case "F":
		return lattice.Float
	case "S":
		return lattice.Short
	case "C":
		return lattice.Char
	case "B":
		return lattice.Byte
	case "Z":
		return lattice.Boolean
	case "J":
		return lattice.Long1
	case "D":
		return lattice.Double1
	default:
		return lattice.Reference
	}
}

func isWideDescriptor(desc string) bool {
	return desc == "J" || desc == "D"
}
