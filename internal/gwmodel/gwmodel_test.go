package gwmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateAvailableDefaultsTrue(t *testing.T) {
	assert.True(t, State{"on": true}.Available())
	assert.False(t, State{"available": false}.Available())
	assert.True(t, State{"available": "not-a-bool"}.Available())
}

func TestStateEndpointsParsesNestedMaps(t *testing.T) {
	s := State{"endpoints": map[string]interface{}{
		"1": map[string]interface{}{"on": true},
	}}
	eps := s.Endpoints()
	assert.Equal(t, State{"on": true}, eps["1"])
}

func TestStateEndpointsNilWhenAbsent(t *testing.T) {
	assert.Nil(t, State{"on": true}.Endpoints())
}

func TestStateCloneIsIndependentCopy(t *testing.T) {
	s := State{"on": true}
	clone := s.Clone()
	clone["on"] = false
	assert.True(t, s["on"].(bool))
}

func TestEndpointHasExpose(t *testing.T) {
	ep := Endpoint{Exposes: []string{"switch", "light"}}
	assert.True(t, ep.HasExpose("light"))
	assert.False(t, ep.HasExpose("cover"))
}

func TestEndpointOptionListToleratesBothShapes(t *testing.T) {
	ep := Endpoint{Options: map[string]interface{}{
		"a": []string{"x", "y"},
		"b": []interface{}{"z"},
	}}
	assert.Equal(t, []string{"x", "y"}, ep.OptionList("a"))
	assert.Equal(t, []string{"z"}, ep.OptionList("b"))
	assert.Nil(t, ep.OptionList("missing"))
}

func TestDeviceIsAvailableDefaultsTrue(t *testing.T) {
	assert.True(t, Device{}.IsAvailable())
	f := false
	assert.False(t, Device{Available: &f}.IsAvailable())
}

func TestDeviceEndpointLookup(t *testing.T) {
	d := Device{Endpoints: []Endpoint{{ID: 1}, {ID: 2}}}
	ep, ok := d.Endpoint(2)
	assert.True(t, ok)
	assert.Equal(t, 2, ep.ID)

	_, ok = d.Endpoint(9)
	assert.False(t, ok)
}

func TestIsControlEndpoint(t *testing.T) {
	assert.True(t, IsControlEndpoint(Endpoint{Exposes: []string{"switch"}}))
	assert.False(t, IsControlEndpoint(Endpoint{Exposes: []string{"temperature"}}))
}
