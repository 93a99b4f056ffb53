package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"givebox/backend/internal/chathub"
	"givebox/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("GET /ws", func() {
	var (
		api    *testAPI
		server *httptest.Server
		wsURL  string
	)

	BeforeEach(func() {
		api = newTestAPI()
		server = httptest.NewServer(api.engine)
		wsURL = "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	})

	AfterEach(func() {
		server.Close()
	})

	readFrame := func(conn *websocket.Conn) chathub.ServerFrame {
		var f chathub.ServerFrame
		Expect(conn.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
		Expect(conn.ReadJSON(&f)).To(Succeed())
		return f
	}

	It("refuses the upgrade without a token", func() {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		Expect(err).To(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
	})

	It("forwards conversation changes after a subscribe", func() {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?access_token="+api.token, nil)
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close()

		convID := uuid.NewString()
		Expect(conn.WriteJSON(chathub.ClientCommand{Action: chathub.ActionSubscribe, ConversationID: convID})).To(Succeed())
		Expect(readFrame(conn).Type).To(Equal(chathub.FrameSubscribed))

		change, err := models.NewChange(models.TableMessages, models.OpInsert, convID, models.Message{ID: 7, ConversationID: convID}, time.Now())
		Expect(err).NotTo(HaveOccurred())
		Expect(api.feed.Publish(context.Background(), change)).To(Succeed())

		f := readFrame(conn)
		Expect(f.Type).To(Equal(chathub.FrameChange))
		Expect(f.Change.Table).To(Equal(models.TableMessages))
		Expect(f.ConversationID).To(Equal(convID))
	})

	It("releases the client when the socket closes", func() {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Authorization": {"Bearer " + api.token}})
		Expect(err).NotTo(HaveOccurred())

		Expect(conn.WriteJSON(chathub.ClientCommand{Action: chathub.ActionSubscribe, ConversationID: uuid.NewString()})).To(Succeed())
		Expect(readFrame(conn).Type).To(Equal(chathub.FrameSubscribed))
		Expect(api.hub.ClientCount()).To(Equal(1))

		Expect(conn.Close()).To(Succeed())
		Eventually(api.hub.ClientCount, 2*time.Second, 20*time.Millisecond).Should(BeZero())
	})
})
