package material

import "fmt"

// Bin is the render bin of a substance. It selects draw order and pipeline
// state; slots without a name are reserved by the engine.
type Bin uint8

const (
	BinSky Bin = iota
	BinSkyCloud
	BinTerrain
	BinTerrainDetail
	BinRoad
	BinRoadDecal
	BinRoadShiny
	BinWater
	BinBuilding
	BinBuildingLit
	BinWindow
	BinClutter
	BinFoliage
	BinTree
	BinGrass
	BinShadow
	BinCar
	BinCarGlass
	BinCarLights
	BinCarInterior
	BinDriver
	BinWheel
	BinParticle
	BinGlow
	BinBillboard
	BinSign
	BinFence
	BinBarrier
	BinLight
	BinLightCone
	BinReflection
	BinEnvMap
	BinDecal
	BinSkid
	BinDamage
	BinMirror
	BinHud
	BinFont
	BinOverlay
	BinDebug
	BinReserved40

	// BinCount is the number of bins with a known effect mapping.
	BinCount
)

// MaxBin is the largest bin value the engine accepts.
const MaxBin Bin = 63

var binNames = [BinCount]string{
	"Sky", "SkyCloud", "Terrain", "TerrainDetail", "Road", "RoadDecal", "RoadShiny", "Water",
	"Building", "BuildingLit", "Window", "Clutter", "Foliage", "Tree", "Grass", "Shadow",
	"Car", "CarGlass", "CarLights", "CarInterior", "Driver", "Wheel", "Particle", "Glow",
	"Billboard", "Sign", "Fence", "Barrier", "Light", "LightCone", "Reflection", "EnvMap",
	"Decal", "Skid", "Damage", "Mirror", "Hud", "Font", "Overlay", "Debug",
	"Reserved40",
}

func (b Bin) String() string {
	if b < BinCount {
		return binNames[b]
	}
	return fmt.Sprintf("Bin(%d)", uint8(b))
}

// TextureFlags describes how a substance uses its texture slots. The common
// combinations are enumerated; other bits are carried through unchanged.
type TextureFlags uint8

const (
	TextureBumpMap         TextureFlags = 0x01
	TextureColorMask       TextureFlags = 0x02
	TextureDamage          TextureFlags = 0x04
	TextureColorMaskDamage TextureFlags = TextureColorMask | TextureDamage
	TextureFlag1           TextureFlags = 0x08
)
