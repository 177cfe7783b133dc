package scenario

// BuiltIn returns predefined round scripts.
func BuiltIn() map[string]Script {
	return map[string]Script{
		"lights-out": {
			Name:        "Lights Out",
			Description: "A single forced blackout catches the facility off guard.",
			Phases: []Phase{
				{
					Name:        "setup",
					Description: "Personnel go about their shift.",
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 30, Next: "escalation"}},
				},
				{
					Name:        "escalation",
					Description: "The grid fails.",
					Actions:     []Action{{Type: ActionTriggerBlackout}},
					Triggers:    []Trigger{{Event: EventBlackoutStarted, Value: 1, Next: "climax"}},
				},
				{
					Name:        "climax",
					Description: "Something hunts in the dark.",
					Triggers:    []Trigger{{Event: EventBlackoutEnded, Value: 1, Next: "resolution"}},
				},
				{
					Name:        "resolution",
					Description: "Power returns and survivors regroup.",
				},
			},
		},
		"cascade": {
			Name:        "Cascade",
			Description: "Overlapping failures stack the darkness until the hazard turns lethal.",
			Phases: []Phase{
				{
					Name:        "setup",
					Description: "A first failure hits shortly after the round starts.",
					Actions:     []Action{{Type: ActionTriggerBlackout}},
					Triggers:    []Trigger{{Event: EventBlackoutStarted, Value: 1, Next: "escalation"}},
				},
				{
					Name:        "escalation",
					Description: "A second failure stacks on the first.",
					Actions:     []Action{{Type: ActionTriggerBlackout}},
					Triggers:    []Trigger{{Event: EventBlackoutStarted, Value: 1, Next: "climax"}},
				},
				{
					Name:        "climax",
					Description: "Double damage until someone falls.",
					Triggers: []Trigger{
						{Event: EventPlayerKilled, Value: 1, Next: "resolution"},
						{Event: EventTimeElapsed, Value: 180, Next: "resolution"},
					},
				},
				{
					Name:        "resolution",
					Description: "The grid stabilises.",
				},
			},
		},
		"last-light": {
			Name:        "Last Light",
			Description: "Survivors fight for the only working flashlight.",
			Phases: []Phase{
				{
					Name:        "setup",
					Description: "The guard switches the flashlight off to save battery.",
					Actions:     []Action{{Type: ActionToggleLight, Player: "guard-1"}},
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 10, Next: "escalation"}},
				},
				{
					Name:        "escalation",
					Description: "The lights die and everyone runs for the guard.",
					Actions: []Action{
						{Type: ActionTriggerBlackout},
						{Type: ActionMove, Player: "d-9341", Room: "hcz-tesla"},
						{Type: ActionMove, Player: "scientist", Room: "hcz-tesla"},
					},
					Triggers: []Trigger{{Event: EventBlackoutStarted, Value: 1, Next: "climax"}},
				},
				{
					Name:        "climax",
					Description: "The flashlight comes back on and nerves fray.",
					Actions: []Action{
						{Type: ActionToggleLight, Player: "guard-1"},
						{Type: ActionUseItem, Player: "scientist", Item: "adrenaline"},
					},
					Triggers: []Trigger{{Event: EventBlackoutEnded, Value: 1, Next: "resolution"}},
				},
				{
					Name:        "resolution",
					Description: "The survivors count heads.",
				},
			},
		},
	}
}
