/*
x728-battery - Battery status for the x728 UPS HAT
Copyright (C) 2024, The Cacophony Project

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package indicator

import (
	"errors"

	"github.com/TheCacophonyProject/x728-battery/monitor"
	"github.com/godbus/dbus"
	"github.com/godbus/dbus/introspect"
)

const (
	dbusName = "org.cacophony.x728"
	dbusPath = "/org/cacophony/x728"
)

var errNoStatus = errors.New("no battery reading yet")

type service struct {
	conn   *dbus.Conn
	status *latestStatus
}

func startService(status *latestStatus) (*service, error) {
	log.Info("Starting x728 dbus service")
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, err
	}
	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, errors.New("name already taken")
	}

	s := &service{
		conn:   conn,
		status: status,
	}
	conn.Export(s, dbusPath, dbusName)
	conn.Export(genIntrospectable(s), dbusPath, "org.freedesktop.DBus.Introspectable")
	return s, nil
}

func genIntrospectable(v interface{}) introspect.Introspectable {
	node := &introspect.Node{
		Interfaces: []introspect.Interface{{
			Name:    dbusName,
			Methods: introspect.Methods(v),
			Signals: []introspect.Signal{{
				Name: "Status",
				Args: statusArgs,
			}},
		}},
	}
	return introspect.NewIntrospectable(node)
}

var statusArgs = []introspect.Arg{
	{Name: "onExternalPower", Type: "b"},
	{Name: "voltage", Type: "d"},
	{Name: "chargePercent", Type: "d"},
	{Name: "minutesRemaining", Type: "d"},
	{Name: "category", Type: "s"},
	{Name: "level", Type: "i"},
}

/*
dbus-send --system --print-reply --dest=org.cacophony.x728 /org/cacophony/x728 org.cacophony.x728.GetStatus
*/

// GetStatus returns the latest battery status.
func (s *service) GetStatus() (bool, float64, float64, float64, string, int32, *dbus.Error) {
	snapshot, ok := s.status.get()
	if !ok {
		return false, 0, 0, 0, "", 0, makeDbusError(".NoStatus", errNoStatus)
	}
	return snapshot.OnExternalPower, snapshot.Voltage, snapshot.ChargePercent, snapshot.MinutesRemaining,
		snapshot.Category.Kind.String(), int32(snapshot.Category.Level), nil
}

// emit broadcasts a snapshot as a Status signal.
func (s *service) emit(snapshot monitor.StatusSnapshot) {
	if err := s.conn.Emit(dbusPath, dbusName+".Status", statusValues(snapshot)...); err != nil {
		log.Errorf("Error emitting status signal: %v", err)
	}
}

func statusValues(s monitor.StatusSnapshot) []interface{} {
	return []interface{}{
		s.OnExternalPower,
		s.Voltage,
		s.ChargePercent,
		s.MinutesRemaining,
		s.Category.Kind.String(),
		int32(s.Category.Level),
	}
}

func makeDbusError(name string, err error) *dbus.Error {
	return &dbus.Error{
		Name: dbusName + name,
		Body: []interface{}{err.Error()},
	}
}
