// Package drive defines the closed set of character drives and the maneuver
// catalog. Both are small fixed sets, so they are enumerated variants with
// static lookup tables rather than runtime hierarchies.
package drive

// ID identifies a drive.
type ID string

const (
	Protection ID = "protection"
	Vengeance  ID = "vengeance"
	Ambition   ID = "ambition"
	Curiosity  ID = "curiosity"
	Survival   ID = "survival"
)

// Track names the stress track a drive reinforces.
type Track int

const (
	TrackNone Track = iota
	TrackPhysical
	TrackMental
)

// Drive describes one drive: its free maneuver and its exclusive pool.
type Drive struct {
	ID           ID
	Name         string
	FreeManeuver ManeuverID
	Exclusive    []ManeuverID
	BonusTrack   Track // extra stress box granted by the drive
}

// ManeuverID identifies a maneuver in the catalog.
type ManeuverID string

const (
	ManeuverShieldOther   ManeuverID = "shield-other"
	ManeuverIronGuard     ManeuverID = "iron-guard"
	ManeuverMarkedFoe     ManeuverID = "marked-foe"
	ManeuverColdFocus     ManeuverID = "cold-focus"
	ManeuverBoldClaim     ManeuverID = "bold-claim"
	ManeuverSilverTongue  ManeuverID = "silver-tongue"
	ManeuverKeenEye       ManeuverID = "keen-eye"
	ManeuverHiddenLore    ManeuverID = "hidden-lore"
	ManeuverSecondWind    ManeuverID = "second-wind"
	ManeuverScavenger     ManeuverID = "scavenger"
	ManeuverPushThrough   ManeuverID = "push-through"
	ManeuverReadTheRoom   ManeuverID = "read-the-room"
	ManeuverStandTogether ManeuverID = "stand-together"
)

// Maneuver describes a catalog entry. Drive is empty for general maneuvers
// available to every character.
type Maneuver struct {
	ID    ManeuverID
	Name  string
	Drive ID
}

var drives = map[ID]Drive{
	Protection: {
		ID: Protection, Name: "Protection",
		FreeManeuver: ManeuverShieldOther,
		Exclusive:    []ManeuverID{ManeuverIronGuard, ManeuverStandTogether},
		BonusTrack:   TrackPhysical,
	},
	Vengeance: {
		ID: Vengeance, Name: "Vengeance",
		FreeManeuver: ManeuverMarkedFoe,
		Exclusive:    []ManeuverID{ManeuverColdFocus},
		BonusTrack:   TrackMental,
	},
	Ambition: {
		ID: Ambition, Name: "Ambition",
		FreeManeuver: ManeuverBoldClaim,
		Exclusive:    []ManeuverID{ManeuverSilverTongue},
		BonusTrack:   TrackMental,
	},
	Curiosity: {
		ID: Curiosity, Name: "Curiosity",
		FreeManeuver: ManeuverKeenEye,
		Exclusive:    []ManeuverID{ManeuverHiddenLore, ManeuverReadTheRoom},
		BonusTrack:   TrackMental,
	},
	Survival: {
		ID: Survival, Name: "Survival",
		FreeManeuver: ManeuverSecondWind,
		Exclusive:    []ManeuverID{ManeuverScavenger, ManeuverPushThrough},
		BonusTrack:   TrackPhysical,
	},
}

var maneuvers = map[ManeuverID]Maneuver{
	ManeuverShieldOther:   {ID: ManeuverShieldOther, Name: "Shield Other", Drive: Protection},
	ManeuverIronGuard:     {ID: ManeuverIronGuard, Name: "Iron Guard", Drive: Protection},
	ManeuverStandTogether: {ID: ManeuverStandTogether, Name: "Stand Together", Drive: Protection},
	ManeuverMarkedFoe:     {ID: ManeuverMarkedFoe, Name: "Marked Foe", Drive: Vengeance},
	ManeuverColdFocus:     {ID: ManeuverColdFocus, Name: "Cold Focus", Drive: Vengeance},
	ManeuverBoldClaim:     {ID: ManeuverBoldClaim, Name: "Bold Claim", Drive: Ambition},
	ManeuverSilverTongue:  {ID: ManeuverSilverTongue, Name: "Silver Tongue", Drive: Ambition},
	ManeuverKeenEye:       {ID: ManeuverKeenEye, Name: "Keen Eye", Drive: Curiosity},
	ManeuverHiddenLore:    {ID: ManeuverHiddenLore, Name: "Hidden Lore", Drive: Curiosity},
	ManeuverReadTheRoom:   {ID: ManeuverReadTheRoom, Name: "Read the Room", Drive: Curiosity},
	ManeuverSecondWind:    {ID: ManeuverSecondWind, Name: "Second Wind", Drive: Survival},
	ManeuverScavenger:     {ID: ManeuverScavenger, Name: "Scavenger", Drive: Survival},
	ManeuverPushThrough:   {ID: ManeuverPushThrough, Name: "Push Through", Drive: Survival},
}

// Lookup returns the drive for an id.
func Lookup(id ID) (Drive, bool) {
	d, ok := drives[id]
	return d, ok
}

// LookupManeuver returns the maneuver for an id.
func LookupManeuver(id ManeuverID) (Maneuver, bool) {
	m, ok := maneuvers[id]
	return m, ok
}

// Available returns the maneuvers a character with the given drive may take:
// the drive's free maneuver plus its exclusive pool.
func Available(id ID) []ManeuverID {
	d, ok := drives[id]
	if !ok {
		return nil
	}
	out := make([]ManeuverID, 0, 1+len(d.Exclusive))
	out = append(out, d.FreeManeuver)
	out = append(out, d.Exclusive...)
	return out
}

// TrackBonus reports the extra stress boxes a drive grants per track.
func TrackBonus(id ID) (physical, mental int) {
	d, ok := drives[id]
	if !ok {
		return 0, 0
	}
	switch d.BonusTrack {
	case TrackPhysical:
		return 1, 0
	case TrackMental:
		return 0, 1
	default:
		return 0, 0
	}
}
