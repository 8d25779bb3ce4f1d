package live

import "strings"

// ClientScript connects the page to the live server. Clicks and input
// events are forwarded by element path; render messages replace the body
// and restore focus.
const ClientScript = `
<script>
(function() {
    'use strict';

    var reconnectDelay = 1000;
    var maxReconnectDelay = 30000;
    var ws = null;

    function pathOf(el) {
        var path = [];
        while (el && el !== document.documentElement) {
            var i = 0;
            for (var s = el.previousElementSibling; s; s = s.previousElementSibling) {
                i++;
            }
            path.unshift(i);
            el = el.parentElement;
        }
        if (!el) {
            return null;
        }
        path.unshift(0);
        return path;
    }

    function elementAt(path) {
        var el = document.documentElement;
        for (var i = 1; el && i < path.length; i++) {
            el = el.children[path[i]];
        }
        return el;
    }

    function send(msg) {
        if (ws && ws.readyState === WebSocket.OPEN && msg.path) {
            ws.send(JSON.stringify(msg));
        }
    }

    function render(html) {
        var next = new DOMParser().parseFromString(html, 'text/html');
        var focused = document.activeElement;
        var focusPath = focused && focused !== document.body ? pathOf(focused) : null;
        var start = focused && focused.selectionStart;
        var end = focused && focused.selectionEnd;

        document.body.replaceWith(next.body);

        if (focusPath) {
            var el = elementAt(focusPath);
            if (el && el.focus) {
                el.focus();
                if (typeof start === 'number' && el.setSelectionRange) {
                    try { el.setSelectionRange(start, end); } catch (err) {}
                }
            }
        }
    }

    document.addEventListener('click', function(e) {
        send({type: 'click', path: pathOf(e.target)});
    });

    document.addEventListener('input', function(e) {
        send({type: 'input', path: pathOf(e.target), value: e.target.value});
    });

    function connect() {
        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        ws = new WebSocket(protocol + '//' + location.host + '/ws');

        ws.onopen = function() {
            reconnectDelay = 1000;
        };

        ws.onmessage = function(e) {
            var msg;
            try {
                msg = JSON.parse(e.data);
            } catch (err) {
                return;
            }
            if (msg.type === 'render') {
                render(msg.html);
            }
        };

        ws.onclose = function() {
            setTimeout(function() {
                reconnectDelay = Math.min(reconnectDelay * 2, maxReconnectDelay);
                connect();
            }, reconnectDelay);
        };

        ws.onerror = function() {
            ws.close();
        };
    }

    connect();
})();
</script>
`

// InjectScript inserts ClientScript before the closing body tag, or
// appends it when there is none.
func InjectScript(page string) string {
	if i := strings.LastIndex(page, "</body>"); i >= 0 {
		return page[:i] + ClientScript + page[i:]
	}
	return page + ClientScript
}
