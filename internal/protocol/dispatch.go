package protocol

// Handler receives one callback per event kind. Adding a kind means adding
// a method here, which every implementation must then provide.
type Handler interface {
	OnGameStart(GameStart)
	OnGameUpdate(GameUpdate)
	OnNextTurn(NextTurn)
	OnTilePlace(TilePlace)
	OnGameEnd(GameEnd)
	OnPlaceRequest(PlaceRequest)
}

// Dispatch routes ev to the matching Handler method.
func Dispatch(ev Event, h Handler) {
	switch e := ev.(type) {
	case GameStart:
		h.OnGameStart(e)
	case GameUpdate:
		h.OnGameUpdate(e)
	case NextTurn:
		h.OnNextTurn(e)
	case TilePlace:
		h.OnTilePlace(e)
	case GameEnd:
		h.OnGameEnd(e)
	case PlaceRequest:
		h.OnPlaceRequest(e)
	}
}
