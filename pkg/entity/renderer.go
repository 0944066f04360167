package entity

// Renderer draws simulated entities. Implementations own all geometry,
// materials and cameras; they only read entity state.
type Renderer interface {
	RenderBall(ball *Ball)
	RenderCar(car *Car)
	Clear()
	Present()
}
