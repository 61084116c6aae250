package network

import "net"

// Pipe соединяет серверную и клиентскую стороны в памяти. Серверная сторона
// публикует события в serverInbox как обычное входящее соединение.
func Pipe(serverInbox, clientInbox *Inbox, opts Options) (server Channel, client Channel) {
	a, b := net.Pipe()

	sc := newConn(newStreamConn(a, 0), ChannelPipe, opts)
	cc := newConn(newStreamConn(b, 0), ChannelPipe, opts)

	sc.start(serverInbox, false)
	cc.start(clientInbox, true)
	return sc, cc
}
