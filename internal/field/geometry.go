package field

import (
	"github.com/golang/geo/r3"

	"github.com/ayusman/strikezone/internal/geom"
	"github.com/ayusman/strikezone/internal/scene"
)

const (
	// foulLineLength is the distance from home plate to first or third base.
	foulLineLength = 27.43
	lineWidth      = 0.05
	markerHeight   = 0.01
)

// fieldNodes indexes the controller's subtree in the scene.
type fieldNodes struct {
	container scene.NodeID
	plate     scene.NodeID
	zone      scene.NodeID
	lines     scene.NodeID
	firstBase scene.NodeID
	thirdBase scene.NodeID
	mound     scene.NodeID
}

// buildSceneLocked creates the container and its children at the anchor pose.
// Field lines and the mound are decorative and hang off a separate group so
// that hiding them never touches the strike zone.
func (c *Controller) buildSceneLocked() error {
	container, err := c.tree.Add(scene.Root, "field", c.renderPoseLocked(), r3.Vector{})
	if err != nil {
		return err
	}
	n := &fieldNodes{container: container}

	add := func(parent scene.NodeID, name string) (scene.NodeID, error) {
		return c.tree.Add(parent, name, geom.IdentityPose(), r3.Vector{})
	}
	if n.plate, err = add(container, "home-plate"); err != nil {
		return err
	}
	if n.zone, err = add(container, "strike-zone"); err != nil {
		return err
	}
	if n.lines, err = add(container, "field-lines"); err != nil {
		return err
	}
	if n.firstBase, err = add(n.lines, "first-base-line"); err != nil {
		return err
	}
	if n.thirdBase, err = add(n.lines, "third-base-line"); err != nil {
		return err
	}
	if n.mound, err = add(n.lines, "pitcher-mound"); err != nil {
		return err
	}
	c.nodes = n

	if err := c.tree.SetVisible(n.lines, c.linesVisible); err != nil {
		return err
	}
	return c.layoutChildrenLocked()
}

// layoutChildrenLocked positions children relative to the container from the
// configured dimensions. It runs on placement and on every commit.
func (c *Controller) layoutChildrenLocked() error {
	d := c.cfg.Dimensions
	n := c.nodes
	tree := c.tree

	if err := setNode(tree, n.plate, geom.IdentityPose(), r3.Vector{X: d.PlateWidth, Y: markerHeight, Z: d.PlateHeight}); err != nil {
		return err
	}

	zoneCenter := r3.Vector{Y: d.KneeHeight + d.StrikeZoneHeight/2}
	zoneSize := r3.Vector{X: d.StrikeZoneWidth, Y: d.StrikeZoneHeight, Z: d.PlateHeight}
	if err := setNode(tree, n.zone, geom.NewYawPose(zoneCenter, 0), zoneSize); err != nil {
		return err
	}

	// Foul lines leave the plate at ±45° toward the outfield (-Z).
	for _, l := range []struct {
		id  scene.NodeID
		deg float64
	}{{n.firstBase, -45}, {n.thirdBase, 45}} {
		rad := geom.DegToRad(l.deg)
		mid := geom.RotateAroundY(rad, r3.Vector{Z: -foulLineLength / 2})
		if err := setNode(tree, l.id, geom.NewYawPose(mid, rad), r3.Vector{X: lineWidth, Y: markerHeight, Z: foulLineLength}); err != nil {
			return err
		}
	}

	moundPose := geom.NewYawPose(r3.Vector{Z: -d.MoundDistance}, 0)
	moundSize := r3.Vector{X: 5.49, Y: 0.254, Z: 5.49}
	if d.MoundDistance <= 0 {
		moundSize = r3.Vector{}
	}
	if err := setNode(tree, n.mound, moundPose, moundSize); err != nil {
		return err
	}
	return tree.SetVisible(n.mound, d.MoundDistance > 0)
}

func setNode(tree *scene.Tree, id scene.NodeID, pose geom.Pose, extent r3.Vector) error {
	if err := tree.SetLocal(id, pose); err != nil {
		return err
	}
	return tree.SetExtent(id, extent)
}
