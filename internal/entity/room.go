package entity

const (
	StatusWaiting  = "waiting"
	StatusOngoing  = "ongoing"
	StatusFinished = "finished"

	PlayerX    = "X"
	PlayerO    = "O"
	PlayerDraw = "draw"

	EmptyCell = ""
)

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Member is one connection participating in a room. The connection id is a
// weak reference: rooms never own the underlying transport.
type Member struct {
	ConnectionID string `json:"connection_id"`
	Mark         string `json:"mark"`
}

// Room is one isolated two-player session, identified by a client-supplied id.
type Room struct {
	ID      string    `json:"id"`
	Board   [9]string `json:"board"`
	Turn    string    `json:"turn"`
	Winner  string    `json:"winner"`
	Status  string    `json:"status"`
	Members []*Member `json:"members"`
}

// NewRoom creates a room with the requester as its first member. The first
// entrant is always X and X always opens the game.
func NewRoom(id, connectionID string) *Room {
	return &Room{
		ID:     id,
		Board:  [9]string{EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell},
		Turn:   PlayerX,
		Status: StatusWaiting,
		Members: []*Member{
			{ConnectionID: connectionID, Mark: PlayerX},
		},
	}
}

func (that *Room) MemberByConnection(connectionID string) *Member {
	for _, member := range that.Members {
		if member.ConnectionID == connectionID {
			return member
		}
	}

	return nil
}

func (that *Room) OpponentOf(connectionID string) *Member {
	for _, member := range that.Members {
		if member.ConnectionID != connectionID {
			return member
		}
	}

	return nil
}

// RemoveMember drops the given connection from the room and reports whether
// it was a member.
func (that *Room) RemoveMember(connectionID string) bool {
	for i, member := range that.Members {
		if member.ConnectionID == connectionID {
			that.Members = append(that.Members[:i], that.Members[i+1:]...)
			return true
		}
	}

	return false
}

// FreeMark returns the mark not yet claimed by a member.
func (that *Room) FreeMark() string {
	for _, member := range that.Members {
		if member.Mark == PlayerX {
			return PlayerO
		}
	}

	return PlayerX
}

func (that *Room) IsFull() bool {
	return len(that.Members) >= 2
}

func (that *Room) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Room) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that *Room) IsWaiting() bool {
	return that.Status == StatusWaiting
}

// DetermineResult evaluates the board: a winning mark, PlayerDraw when every
// cell is taken with no winning line, or "" while the game continues.
func (that *Room) DetermineResult() string {
	for _, combo := range WinCombos {
		a, b, c := that.Board[combo[0]], that.Board[combo[1]], that.Board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return a
		}
	}

	for _, cell := range that.Board {
		if cell == EmptyCell {
			return ""
		}
	}

	return PlayerDraw
}

// Clone returns a deep copy, safe to hand out while the registry keeps
// mutating the original.
func (that *Room) Clone() *Room {
	cloned := *that

	cloned.Members = make([]*Member, len(that.Members))
	for i, member := range that.Members {
		copied := *member
		cloned.Members[i] = &copied
	}

	return &cloned
}
