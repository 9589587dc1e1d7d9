/*
 * Thermal property calculations for the structure statistics
 */
package abm

import (
	"math"

	"github.com/spine-tools/ambience2abm/assumptions"
	"github.com/spine-tools/ambience2abm/stock"
)

// Ground coupling applies to the structure type of this name only. The
// internal floors mapped to the same raw data columns stay interior.
const groundCoupledStructureType = "base_floor"

// effectiveThermalMass computes the effective thermal mass of a
// structure in J/m2K following the effective thickness method of
// 'EN ISO 13786:2017 Annex C.2.4'. Internal structures assume no
// insulation.
func effectiveThermalMass(envelope *stock.Envelope, structureType *assumptions.StructureType, periodOfVariations float64) float64 {
	shc := envelope.MaterialThickness * envelope.MaterialDensity * envelope.MaterialHeatCapacity
	if !structureType.IsInternal {
		shc += 0.5 * envelope.InsulationThickness * envelope.InsulationDensity * envelope.InsulationHeatCapacity
	}
	omega := 2.0 * math.Pi / periodOfVariations
	interiorResistance := structureType.InteriorResistance
	return math.Sqrt(shc * shc / (1.0 + omega*omega*shc*shc*interiorResistance*interiorResistance))
}

// uValues computes the exterior, ground, interior and total U-values of
// a structure in W/m2K. Internal structures assume no insulation and
// exchange heat with the interior air on both sides. Ground-coupled
// heat losses follow 'Kissock K., Simplified Model for Ground Heat
// Transfer from Slab-on-Grade Buildings, (c) 2013 ASHRAE'.
func uValues(envelope *stock.Envelope, structureType *assumptions.StructureType, interiorNodeDepth float64) (exterior, ground, interior, total float64) {
	materialResistance := envelope.MaterialThickness / envelope.MaterialConductivity
	insulationResistance := envelope.InsulationThickness / envelope.InsulationConductivity

	if structureType.IsInternal {
		intR := interiorNodeDepth*0.5*materialResistance + structureType.InteriorResistance
		extR := (2.0-interiorNodeDepth)*0.5*materialResistance + structureType.ExteriorResistance
		return 1.0 / extR, 0.0, 1.0 / intR, 1.0 / (extR + intR)
	}

	if structureType.Name == groundCoupledStructureType {
		intR := interiorNodeDepth*(materialResistance+0.5*insulationResistance) + structureType.InteriorResistance
		flrR := materialResistance + insulationResistance + structureType.InteriorResistance
		grnR := 1.0/(0.114/(0.7044+flrR)+0.8768/(2.818+flrR)) - intR
		return 0.0, 1.0 / grnR, 1.0 / intR, 1.0 / (intR + grnR)
	}

	intR := interiorNodeDepth*(materialResistance+0.5*insulationResistance) + structureType.InteriorResistance
	extR := materialResistance + insulationResistance + structureType.InteriorResistance + structureType.ExteriorResistance - intR
	return 1.0 / extR, 0.0, 1.0 / intR, 1.0 / (extR + intR)
}
