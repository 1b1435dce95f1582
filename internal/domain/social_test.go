package domain

import "testing"

func TestActiveSynergies(t *testing.T) {
	synergies := []Synergy{
		{ID: "syn_double_black", RequiredNames: []string{"Osamu Dazai", "Chuuya Nakahara"}, Multiplier: 1.5},
		{ID: "syn_shin_soukoku", RequiredNames: []string{"Atsushi Nakajima", "Ryunosuke Akutagawa"}, Multiplier: 1.3},
		{ID: "syn_empty"},
	}

	tests := []struct {
		name    string
		members []string
		want    []string
	}{
		{"none", []string{"Osamu Dazai"}, nil},
		{"double black", []string{"Chuuya Nakahara", "Kyouka Izumi", "Osamu Dazai"}, []string{"syn_double_black"}},
		{"empty squad", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ActiveSynergies(tt.members, synergies)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d synergies, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("synergy[%d] = %s, want %s", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
}

func TestUserState_SquadNames(t *testing.T) {
	s := &UserState{
		CardInstances: map[string]CardInstance{
			"a": {ID: "a", Name: "Osamu Dazai"},
			"b": {ID: "b", Name: "Chuuya Nakahara"},
		},
		Teams: [][]string{{"a", "b", "ghost"}},
	}
	names := s.SquadNames()
	if len(names) != 2 {
		t.Fatalf("SquadNames() = %v, want 2 names", names)
	}
	if names[0] != "Osamu Dazai" || names[1] != "Chuuya Nakahara" {
		t.Errorf("SquadNames() = %v", names)
	}
}
