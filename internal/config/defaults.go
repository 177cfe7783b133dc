package config

import "blackout-sim/internal/effect"

// Default returns a configuration that runs out of the box: a small
// four-zone facility with a handful of players.
func Default() *Config {
	return &Config{
		Blackout: BlackoutConfig{
			Enabled:      true,
			InitialDelay: 300,
			RandomEvents: true,
			DelayMin:     300,
			DelayMax:     500,
			DurationMin:  90,
			DurationMax:  150,
			WarningLead:  10,
			Zones: []ZoneChance{
				{Zone: "Heavy", Chance: 99},
				{Zone: "Light", Chance: 45},
				{Zone: "Entrance", Chance: 65},
				{Zone: "Surface", Chance: 25},
			},
			OtherChance:          0,
			FacilityWideFallback: true,
			DisableTeslas:        true,
			TeslaBuffer:          0.5,
			DisableNuke:          true,
			Announcements: Announcements{
				Warning:      "Facility power system failure in %d seconds",
				End:          "Facility power system restored",
				FalseAlarm:   "Facility power system failure averted",
				FacilityWide: "Facility wide power system failure",
				Glitchy:      true,
			},
		},
		Hazard: HazardConfig{
			Enabled:      true,
			ActionDelay:  5,
			BaseDamage:   10,
			Penetration:  0.5,
			StrikeRegion: "body",
			HitboxMultipliers: map[string]float64{
				"head": 2,
				"body": 1,
				"arm":  0.7,
				"leg":  0.7,
			},
			Hint:            "You are being attacked by something in the dark. Find a light source!",
			HintDuration:    3,
			FlickerNearby:   true,
			FlickerToggles:  6,
			FlickerInterval: 0.25,
			ItemForceMin:    2,
			ItemForceMax:    6,
			MinItemWeight:   0.1,
			MaxItemSpeed:    10,
		},
		Sanity: SanityConfig{
			Enabled:            true,
			StartingValue:      100,
			DecayRateBase:      0.2,
			MultiplierBlackout: 1.5,
			MultiplierDarkness: 2,
			HintsEnabled:       true,
			HintCooldown:       30,
			HintDuration:       3,
			DecreaseHint:       "Your sanity is decreasing: %.0f%%",
			StrikeInterval:     15,
			StrikeRegion:       "body",
			CleanupInterval:    60,
			Stages: []StageConfig{
				{Name: "calm", Min: 80, Max: 100},
				{Name: "uneasy", Min: 50, Max: 80, Effects: []effect.Descriptor{
					{Kind: effect.Deafened, Duration: 2},
				}},
				{Name: "shaken", Min: 20, Max: 50, DamageOnStrike: 2, Effects: []effect.Descriptor{
					{Kind: effect.Concussed, Intensity: 1, Duration: 4},
					{Kind: effect.Exhausted, Intensity: 1, Duration: 4},
				}},
				{Name: "breaking", Min: 0, Max: 20, DamageOnStrike: 5, Effects: []effect.Descriptor{
					{Kind: effect.Blinded, Duration: 2},
					{Kind: effect.Traumatized, Intensity: 1, Duration: 6},
				}},
			},
			RecoveryItems: []RecoveryItem{
				{Item: "painkillers", Min: 10, Max: 20, Notify: true, Hint: "Your mind clears a little"},
				{Item: "adrenaline", Min: 20, Max: 35, Notify: true, Hint: "Your mind clears"},
				{Item: "scp500", Min: 100, Max: 100, Notify: true, Hint: "You feel completely restored"},
			},
		},
		Facility: defaultFacility(),
		Crowd: CrowdConfig{
			MoveChance:        0.2,
			LightToggleChance: 0.05,
			Interval:          5,
		},
	}
}

func defaultFacility() FacilityConfig {
	return FacilityConfig{
		Rooms: []RoomConfig{
			{ID: "lcz-armory", Zone: "Light", Neighbours: []string{"lcz-914"}},
			{ID: "lcz-914", Zone: "Light", Tesla: false, Neighbours: []string{"lcz-armory", "lcz-elevator"}},
			{ID: "lcz-elevator", Zone: "Light", Elevator: true, Neighbours: []string{"lcz-914", "hcz-elevator"}},
			{ID: "hcz-elevator", Zone: "Heavy", Elevator: true, Neighbours: []string{"lcz-elevator", "hcz-tesla"}},
			{ID: "hcz-tesla", Zone: "Heavy", Tesla: true, Neighbours: []string{"hcz-elevator", "hcz-049", "ez-checkpoint"}},
			{ID: "hcz-049", Zone: "Heavy", Neighbours: []string{"hcz-tesla"}},
			{ID: "ez-checkpoint", Zone: "Entrance", Tesla: true, Neighbours: []string{"hcz-tesla", "ez-office"}},
			{ID: "ez-office", Zone: "Entrance", Neighbours: []string{"ez-checkpoint", "ez-gate"}},
			{ID: "ez-gate", Zone: "Entrance", Elevator: true, Neighbours: []string{"ez-office", "surface"}},
			{ID: "surface", Zone: "Surface", Elevator: true, Neighbours: []string{"ez-gate"}},
			{ID: "pocket", Zone: "Pocket"},
		},
		Players: []PlayerConfig{
			{ID: "d-9341", Role: "human", Room: "lcz-armory", Health: 100, Items: []ItemConfig{{Name: "keycard", Weight: 0.05}, {Name: "painkillers", Weight: 0.2}}},
			{ID: "guard-1", Role: "human", Room: "hcz-tesla", Health: 100, Light: true, Armor: map[string]int{"body": 50, "head": 30}, Items: []ItemConfig{{Name: "flashlight", Weight: 0.4}, {Name: "rifle", Weight: 3.6}}},
			{ID: "scientist", Role: "human", Room: "ez-office", Health: 100, Items: []ItemConfig{{Name: "adrenaline", Weight: 0.3}}},
			{ID: "scp-106", Role: "scp", Room: "pocket", Health: 2000, HumeShield: 600},
		},
	}
}
